package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
	"wordchain/domain"
	"wordchain/game"

	"golang.org/x/time/rate"
)

const (
	DefaultReportThreshold = 5
	storageTimeout         = 5 * time.Second
)

type HubOptions struct {
	Lobby   *game.Lobby
	Bans    BanRepo
	Reports ReportRepo
	GameLog GameLog
	// Notifier is optional; without it bans only reach this process.
	Notifier        BanNotifier
	Clock           game.Clock
	ReportThreshold int
	RateLimit       rate.Limit
	RateBurst       int
}

// Hub connects websocket clients to the engine. It translates client
// packets into Lobby and GameRoom calls and fans engine events out to room
// members.
type Hub struct {
	lobby           *game.Lobby
	bans            BanRepo
	reports         ReportRepo
	gameLog         GameLog
	notifier        BanNotifier
	clock           game.Clock
	reportThreshold int
	rateLimit       rate.Limit
	rateBurst       int

	locker  sync.RWMutex
	clients map[int64]*client
	// closing refuses new sessions; savesClosed refuses new game-log writes.
	closing     bool
	savesClosed bool

	// running Serve calls
	sessions sync.WaitGroup
	// background storage writes
	wg sync.WaitGroup
}

func NewHub(opts HubOptions) *Hub {
	if opts.Clock == nil {
		opts.Clock = game.NewSystemClock()
	}
	if opts.ReportThreshold <= 0 {
		opts.ReportThreshold = DefaultReportThreshold
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = 5
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 10
	}

	return &Hub{
		lobby:           opts.Lobby,
		bans:            opts.Bans,
		reports:         opts.Reports,
		gameLog:         opts.GameLog,
		notifier:        opts.Notifier,
		clock:           opts.Clock,
		reportThreshold: opts.ReportThreshold,
		rateLimit:       opts.RateLimit,
		rateBurst:       opts.RateBurst,
		clients:         make(map[int64]*client),
	}
}

func (h *Hub) IsConnected(userId int64) bool {
	h.locker.RLock()
	defer h.locker.RUnlock()
	_, ok := h.clients[userId]
	return ok
}

func (h *Hub) client(userId int64) *client {
	h.locker.RLock()
	defer h.locker.RUnlock()
	return h.clients[userId]
}

// Serve runs a connected user's session and returns when the connection
// closes. The user is removed from the engine on return.
func (h *Hub) Serve(userId int64, conn Connection) error {
	c := newClient(userId, conn, h.rateLimit, h.rateBurst)

	h.locker.Lock()
	if h.closing {
		h.locker.Unlock()
		conn.Close(ErrServerShutdown.Error())
		return ErrServerShutdown
	}
	if _, ok := h.clients[userId]; ok {
		h.locker.Unlock()
		conn.Close(ErrAlreadyConnected.Error())
		return ErrAlreadyConnected
	}
	h.clients[userId] = c
	h.sessions.Add(1)
	h.locker.Unlock()
	defer h.sessions.Done()

	h.lobby.EnterUser(userId)
	slog.Debug("Client connected", "user_id", userId)

	c.sendPacket(PacketWelcome, map[string]any{
		"userId": userId,
		"rooms":  roomListData(h.lobby.ListRooms())["rooms"],
	})

	go c.writePump(h.clock.NewTicker(pingInterval))
	c.readPump(h.dispatch)

	h.disconnect(c)
	return nil
}

func (h *Hub) disconnect(c *client) {
	h.locker.Lock()
	if h.clients[c.userId] != c {
		h.locker.Unlock()
		return
	}
	delete(h.clients, c.userId)
	h.locker.Unlock()

	c.close("")

	result, err := h.lobby.QuitUser(c.userId, h.announceOwner)
	if err != nil {
		slog.Warn("Quitting user failed", "user_id", c.userId, "error", err.Error())
		return
	}
	h.announceDeparture(c.userId, result)
	slog.Debug("Client disconnected", "user_id", c.userId)
}

// Kick closes the user's connection, if any, with the given close code.
func (h *Hub) Kick(userId int64, code string) bool {
	c := h.client(userId)
	if c == nil {
		return false
	}
	c.sendPacket(PacketBanned, map[string]any{"userId": userId})
	c.close(code)
	return true
}

// Shutdown disconnects every client, waits for their sessions to leave the
// engine, stops every room and waits for pending game-log writes. Games
// ended by those departures are still logged.
func (h *Hub) Shutdown() {
	h.locker.Lock()
	h.closing = true
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.locker.Unlock()

	for _, c := range clients {
		c.close(ErrServerShutdown.Error())
	}
	h.sessions.Wait()
	h.lobby.Shutdown()

	h.locker.Lock()
	h.savesClosed = true
	h.locker.Unlock()
	h.wg.Wait()
}

func (h *Hub) broadcast(userIds []int64, packetType string, data map[string]any) {
	frame, err := EncodePacket(packetType, data)
	if err != nil {
		slog.Error("Encoding packet failed", "type", packetType, "error", err.Error())
		return
	}

	h.locker.RLock()
	targets := make([]*client, 0, len(userIds))
	for _, id := range userIds {
		if c, ok := h.clients[id]; ok {
			targets = append(targets, c)
		}
	}
	h.locker.RUnlock()

	for _, c := range targets {
		c.send(frame)
	}
}

// broadcastLobby reaches every user who is online but not in a room.
func (h *Hub) broadcastLobby(packetType string, data map[string]any) {
	h.locker.RLock()
	ids := make([]int64, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.locker.RUnlock()

	atLobby := ids[:0]
	for _, id := range ids {
		if h.lobby.IsUserAtLobby(id) {
			atLobby = append(atLobby, id)
		}
	}
	h.broadcast(atLobby, packetType, data)
}

func memberIds(info game.RoomInfo) []int64 {
	ids := make([]int64, len(info.Users))
	for i, u := range info.Users {
		ids[i] = u.UserId
	}
	return ids
}

func without(ids []int64, userId int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != userId {
			out = append(out, id)
		}
	}
	return out
}

func (h *Hub) announceOwner(roomId string, newOwnerIndex int) {
	room := h.lobby.GetRoom(roomId)
	if room == nil {
		return
	}
	info := room.Info()
	data := map[string]any{"roomId": roomId, "ownerIndex": newOwnerIndex}
	if newOwnerIndex >= 0 && newOwnerIndex < len(info.Users) {
		data["ownerId"] = info.Users[newOwnerIndex].UserId
	}
	h.broadcast(memberIds(info), PacketOwnerChanged, data)
}

func (h *Hub) announceDeparture(userId int64, result game.LeaveResult) {
	if result.RoomId == "" {
		return
	}
	if result.RoomDestroyed {
		h.broadcastLobby(PacketRoomDestroyed, map[string]any{"roomId": result.RoomId})
		return
	}

	room := h.lobby.GetRoom(result.RoomId)
	if room == nil {
		return
	}
	info := room.Info()
	h.broadcast(memberIds(info), PacketUserLeft, map[string]any{
		"userId": userId,
		"index":  result.Index,
		"room":   roomInfoData(info),
	})
}

func (h *Hub) roomCallbacks(roomId string) game.Callbacks {
	return game.Callbacks{
		OnTimerTick: func(members []int64, status game.TimerStatus) {
			h.broadcast(members, PacketTimerTick, timerData(status))
		},
		OnTurnEnd: func(members []int64, result game.TurnResult) {
			h.broadcast(members, PacketTurnEnd, turnResultData(result))
		},
		OnRoundEnd: func(members []int64, result game.RoundResult) {
			h.broadcast(members, PacketRoundEnd, roundResultData(result))
		},
		OnGameEnd: func(members []int64, result game.GameResult) {
			h.broadcast(members, PacketGameEnd, gameResultData(result))
			h.saveGameResult(roomId, result)
		},
	}
}

// gameRecord ranks tied scores equally.
func gameRecord(roomId string, result game.GameResult, finishedAt time.Time) domain.GameRecord {
	record := domain.GameRecord{
		RoomId:       roomId,
		RoundsPlayed: result.RoundsPlayed,
		FinishedAt:   finishedAt,
		Results:      make([]domain.PlayerResult, len(result.Ranking)),
	}
	for i, p := range result.Ranking {
		rank := i + 1
		if i > 0 && p.Score == result.Ranking[i-1].Score {
			rank = record.Results[i-1].Rank
		}
		record.Results[i] = domain.PlayerResult{UserId: p.UserId, Score: p.Score, Rank: rank}
	}
	return record
}

// saveGameResult runs under the room lock, so the write happens in the
// background.
func (h *Hub) saveGameResult(roomId string, result game.GameResult) {
	if h.gameLog == nil {
		return
	}
	record := gameRecord(roomId, result, h.clock.Now())

	h.locker.RLock()
	defer h.locker.RUnlock()
	if h.savesClosed {
		slog.Warn("Dropping game result after shutdown", "room_id", roomId)
		return
	}
	h.wg.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
		defer cancel()

		if _, err := h.gameLog.SaveGameResult(ctx, record); err != nil {
			slog.Error("Saving game result failed", "room_id", roomId, "error", err.Error())
		}
	})
}

func (h *Hub) dispatch(c *client, p Packet) {
	var (
		data map[string]any
		err  error
	)

	switch p.Type {
	case PacketRoomList:
		data = roomListData(h.lobby.ListRooms())
	case PacketCreateRoom:
		data, err = h.createRoom(c, p)
	case PacketJoinRoom:
		data, err = h.joinRoom(c, p)
	case PacketLeaveRoom:
		data, err = h.leaveRoom(c)
	case PacketSwitchReady:
		data, err = h.switchReady(c, p)
	case PacketStartGame:
		data, err = h.startGame(c)
	case PacketStartRound:
		data, err = h.startRound(c)
	case PacketStartTurn:
		data, err = h.startTurn(c)
	case PacketSayWord:
		data, err = h.sayWord(c, p)
	case PacketReportUser:
		data, err = h.reportUser(c, p)
	default:
		c.sendPacket(PacketError, map[string]any{"error": ErrUnknownPacketType.Error(), "type": p.Type})
		return
	}

	if err != nil {
		slog.Debug("Operation rejected", "user_id", c.userId, "type", p.Type, "error", err.Error())
		c.sendPacket(p.Type, errorData(err))
		return
	}
	c.sendPacket(p.Type, okData(data))
}

func (h *Hub) roomOf(c *client) (*game.GameRoom, error) {
	room := h.lobby.GetRoomByUserId(c.userId)
	if room == nil {
		return nil, game.ErrNotInRoom
	}
	return room, nil
}

func roomConfigFrom(p Packet) game.RoomConfig {
	cfg := game.RoomConfig{
		Title:    p.String("title"),
		Password: p.String("password"),
	}
	if n, ok := p.Int("maxUserCount"); ok {
		cfg.MaxUserCount = int(n)
	}
	if n, ok := p.Int("maxRound"); ok {
		cfg.MaxRound = int(n)
	}
	if n, ok := p.Int("roundTimeLimit"); ok {
		cfg.RoundTimeLimit = int(n)
	}
	return cfg
}

func (h *Hub) createRoom(c *client, p Packet) (map[string]any, error) {
	roomId, err := h.lobby.CreateRoom(c.userId, roomConfigFrom(p))
	if err != nil {
		return nil, err
	}

	room := h.lobby.GetRoom(roomId)
	if room == nil {
		return nil, game.ErrRoomNotFound
	}
	info := room.Info()
	h.broadcastLobby(PacketRoomList, roomListData(h.lobby.ListRooms()))
	return map[string]any{"roomId": roomId, "room": roomInfoData(info)}, nil
}

func (h *Hub) joinRoom(c *client, p Packet) (map[string]any, error) {
	roomId := p.String("roomId")
	room, err := h.lobby.TryJoiningRoom(roomId, c.userId, p.String("password"))
	if err != nil {
		return nil, err
	}

	info := room.Info()
	h.broadcast(without(memberIds(info), c.userId), PacketUserJoined, map[string]any{
		"userId": c.userId,
		"room":   roomInfoData(info),
	})

	data := map[string]any{"roomId": roomId, "room": roomInfoData(info)}
	if status, ok := room.GameStatus(); ok {
		data["status"] = statusData(status)
	}
	return data, nil
}

func (h *Hub) leaveRoom(c *client) (map[string]any, error) {
	result, err := h.lobby.LeaveRoom(c.userId, h.announceOwner)
	if err != nil {
		return nil, err
	}
	h.announceDeparture(c.userId, result)

	data := map[string]any{"roomId": result.RoomId}
	if result.NewOwnerIndex >= 0 {
		data["newOwnerIndex"] = result.NewOwnerIndex
	}
	return data, nil
}

func (h *Hub) switchReady(c *client, p Packet) (map[string]any, error) {
	ready, ok := p.Bool("ready")
	if !ok {
		return nil, ErrMalformedPacket
	}
	room, err := h.roomOf(c)
	if err != nil {
		return nil, err
	}

	index, err := room.SwitchReadyState(c.userId, ready)
	if err != nil {
		return nil, err
	}

	h.broadcast(without(memberIds(room.Info()), c.userId), PacketReadyChanged, map[string]any{
		"userId": c.userId,
		"index":  index,
		"ready":  ready,
	})
	return map[string]any{"index": index, "ready": ready}, nil
}

// startGame, startRound and startTurn announce the new status to the other
// members under the request's own packet type.
func (h *Hub) startGame(c *client) (map[string]any, error) {
	room, err := h.roomOf(c)
	if err != nil {
		return nil, err
	}

	status, err := room.StartGame(c.ctx, c.userId, h.roomCallbacks(room.Id()))
	if err != nil {
		return nil, err
	}

	data := map[string]any{"roomId": room.Id(), "status": statusData(status)}
	h.broadcast(without(memberIds(room.Info()), c.userId), PacketStartGame, okData(data))
	return data, nil
}

func (h *Hub) startRound(c *client) (map[string]any, error) {
	room, err := h.roomOf(c)
	if err != nil {
		return nil, err
	}

	status, err := room.StartRound(c.userId)
	if err != nil {
		return nil, err
	}

	data := map[string]any{"status": statusData(status)}
	h.broadcast(without(memberIds(room.Info()), c.userId), PacketStartRound, okData(data))
	return data, nil
}

func (h *Hub) startTurn(c *client) (map[string]any, error) {
	room, err := h.roomOf(c)
	if err != nil {
		return nil, err
	}

	status, err := room.StartTurn(c.userId)
	if err != nil {
		return nil, err
	}

	data := map[string]any{"status": statusData(status)}
	h.broadcast(without(memberIds(room.Info()), c.userId), PacketStartTurn, okData(data))
	return data, nil
}

// sayWord replies to the submitter only; members learn the outcome from
// the turn_end event.
func (h *Hub) sayWord(c *client, p Packet) (map[string]any, error) {
	word := p.String("word")
	if word == "" {
		return nil, game.ErrWordTooShort
	}
	room, err := h.roomOf(c)
	if err != nil {
		return nil, err
	}

	result, err := room.SayWord(c.ctx, c.userId, word)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"word":           result.Word,
		"scoreDelta":     result.ScoreDelta,
		"nextUserIndex":  result.NextUserIndex,
		"nextUserId":     result.NextUserId,
		"nextStartsWith": result.NextStartsWith,
	}, nil
}

// reportUser files a report and bans the target once the number of reports
// against them reaches the threshold.
func (h *Hub) reportUser(c *client, p Packet) (map[string]any, error) {
	targetId, ok := p.Int("userId")
	if !ok || targetId <= 0 {
		return nil, ErrMalformedPacket
	}
	if targetId == c.userId {
		return nil, ErrCannotReportSelf
	}

	ctx, cancel := context.WithTimeout(c.ctx, storageTimeout)
	defer cancel()

	report := domain.Report{ReporterId: c.userId, ReportedId: targetId, Reason: p.String("reason")}
	if room := h.lobby.GetRoomByUserId(c.userId); room != nil {
		report.RoomId = room.Id()
	}

	if err := h.reports.CreateReport(ctx, report); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		slog.Error("Creating report failed", "reporter", c.userId, "reported", targetId, "error", err.Error())
		return nil, ErrUnknown
	}

	count, err := h.reports.CountReports(ctx, targetId)
	if err != nil {
		slog.Error("Counting reports failed", "reported", targetId, "error", err.Error())
		return map[string]any{"userId": targetId, "banned": false}, nil
	}

	banned := count >= h.reportThreshold
	if banned {
		if err := h.ban(ctx, targetId, "reported"); err != nil {
			slog.Error("Banning user failed", "user_id", targetId, "error", err.Error())
			banned = false
		}
	}
	return map[string]any{"userId": targetId, "banned": banned}, nil
}

func (h *Hub) ban(ctx context.Context, userId int64, reason string) error {
	if err := h.bans.BanUser(ctx, userId, reason); err != nil {
		return err
	}
	slog.Info("User banned", "user_id", userId, "reason", reason)

	if h.notifier != nil {
		err := h.notifier.PublishBan(ctx, userId)
		if err == nil {
			return nil
		}
		slog.Warn("Publishing ban failed, kicking locally", "user_id", userId, "error", err.Error())
	}
	h.Kick(userId, PacketBanned)
	return nil
}
