package nakama

import "time"

// RPC ids registered with Nakama.
const (
	RpcStart         = "citychain_start"
	RpcHelp          = "citychain_help"
	RpcPlay          = "citychain_play"
	RpcLeave         = "citychain_leave"
	RpcMove          = "citychain_move"
	RpcSurrender     = "citychain_surrender"
	RpcTop           = "citychain_top"
	RpcMyRank        = "citychain_myrank"
	RpcProfile       = "citychain_profile"
	RpcCountry       = "citychain_country"
	RpcRematch       = "citychain_rematch"
	RpcCancelRematch = "citychain_cancel_rematch"
	RpcLeaderboard   = "citychain_leaderboard"
	RpcPing          = "citychain_ping"
)

// Notification codes. Nakama reserves codes <= 0.
const (
	NotifyInfo           = 1001
	NotifyGameStarted    = 1002
	NotifyYourTurn       = 1003
	NotifyMoveAccepted   = 1004
	NotifyGameEnded      = 1005
	NotifyRematchOffer   = 1006
	NotifyRematchUpdate  = 1007
	NotifyRematchAborted = 1008
	NotifyMoveRejected   = 1009
)

const (
	gameConfigPath = "data/citychain.json"

	// rtChannelMessageSend is the realtime message id intercepted for moves and chat commands.
	rtChannelMessageSend = "ChannelMessageSend"

	rematchPruneInterval = time.Minute
)

// gRPC status codes used in runtime.NewError.
const (
	codeInvalidArgument    = 3
	codeNotFound           = 5
	codeFailedPrecondition = 9
	codeInternal           = 13
	codeUnauthenticated    = 16
)
