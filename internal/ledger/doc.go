// Package ledger implements the account ledger: buying and selling
// positions at externally quoted prices, with balance bookkeeping and an
// append-only trade history.
//
// Every buy or sell runs under a per-account lock and commits its three
// mutations (cash, holding, ledger entry) through one atomic storage
// call. One quote fetch feeds both the validation and the commit, so the
// executed price is always the validated price.
package ledger
