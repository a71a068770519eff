package server

import "vagabond/game"

// resolveRequest 会话提交本槽位的实体，等待结算后的完整快照
type resolveRequest struct {
	Slot   int
	Entity game.ServerEntity
	Reply  chan<- resolveResult
}

type resolveResult struct {
	Match game.ServerGameMatch
	Err   error
}

// snapshotRequest 只读取当前权威状态
type snapshotRequest struct {
	Reply chan<- game.ServerGameMatch
}

// restartRequest 管理接口强制重开
type restartRequest struct {
	Reply chan<- game.ServerGameMatch
}
