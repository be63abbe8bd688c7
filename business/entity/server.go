package entity

import (
	"context"
)

// LinkServer accepts framed links and delivers their frames
type LinkServer interface {
	Run(ctx context.Context) error
	Send(f *Frame, link *Link) error
	SetReceiverHandler(f FrameHandler)
	SetErrorHandler(f FrameErrorHandler)
	SetConnectHandler(f ConnectHandler)
	SetDisconnectHandler(f DisconnectHandler)
}

// BridgeStater state provider of the REST API
type BridgeStater interface {
	GetState() *BridgeState
	GetLink(id string) (*LinkState, error)
}
