package domain

import "errors"

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrPlacementFailed = errors.New("order placement failed")
	ErrAlreadyStarted  = errors.New("engine already started")
	ErrNotStarted      = errors.New("engine not started")
	ErrReadOnlyWallet  = errors.New("wallet is read-only")
	ErrUnknownAsset    = errors.New("unknown asset")
	ErrUnknownMarket   = errors.New("unknown market")
	ErrWSDisconnect    = errors.New("websocket disconnected")
)
