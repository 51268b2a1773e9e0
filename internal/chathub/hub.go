package chathub

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"natalk/server/internal/config"
	"natalk/server/internal/models"
	"natalk/server/internal/storage"
)

// Inbound is one decoded frame from an admitted connection.
type Inbound struct {
	Client Client
	Event  models.Event
}

// AuthRequest asks the hub to run the authorization gate for a connection
// attempt. The result comes back on Reply.
type AuthRequest struct {
	Creds Credentials
	Reply chan AuthResult
}

type AuthResult struct {
	Admission Admission
	Err       error
}

// CreateRequest asks the hub to create a room.
type CreateRequest struct {
	Name     string
	Password string
	Email    string
	Reply    chan CreateResult
}

type CreateResult struct {
	RoomID     string
	InviteCode string
	Err        error
}

// StatusRequest asks the hub for the current room statuses.
type StatusRequest struct {
	Reply chan []models.RoomStatus
}

// Hub owns the room registry, the per-room rosters and the active-owner
// tracker. All of that state is mutated only inside Run, which consumes the
// request channels one event at a time; that single goroutine is what stands
// in for per-room locking.
type Hub struct {
	rooms   map[string]*models.Room
	clients map[string]map[string]Client // roomID -> identity -> connection
	owners  *OwnerTracker

	// Rooms whose destruction has been announced. They are already gone
	// from the registry; only socket teardown and file deletion remain.
	pendingDestroy map[string]*models.Room

	AuthCh       chan AuthRequest
	CreateCh     chan CreateRequest
	StatusCh     chan StatusRequest
	RegisterCh   chan Client
	UnregisterCh chan Client
	InboundCh    chan Inbound
	AbandonCh    chan Admission

	destroyCh chan string
	quit      chan struct{}

	Store  storage.Store
	Tokens *TokenIssuer
	Log    *logrus.Logger

	Capacity     int
	DestroyGrace time.Duration
	RotateEvery  time.Duration
}

// NewHub builds a hub around a registry loaded from the snapshot.
func NewHub(rooms map[string]*models.Room, store storage.Store, tokens *TokenIssuer, log *logrus.Logger) *Hub {
	if rooms == nil {
		rooms = make(map[string]*models.Room)
	}
	return &Hub{
		rooms:          rooms,
		clients:        make(map[string]map[string]Client),
		owners:         NewOwnerTracker(),
		pendingDestroy: make(map[string]*models.Room),
		AuthCh:         make(chan AuthRequest),
		CreateCh:       make(chan CreateRequest),
		StatusCh:       make(chan StatusRequest),
		RegisterCh:     make(chan Client),
		UnregisterCh:   make(chan Client),
		InboundCh:      make(chan Inbound),
		AbandonCh:      make(chan Admission),
		destroyCh:      make(chan string, 16),
		quit:           make(chan struct{}),
		Store:          store,
		Tokens:         tokens,
		Log:            log,
		Capacity:       config.RoomCapacity,
		DestroyGrace:   config.DestroyGrace,
		RotateEvery:    config.RotationInterval,
	}
}

// Run is the hub's event loop. Every registry mutation happens here.
func (h *Hub) Run() {
	rotate := time.NewTicker(h.RotateEvery)
	defer rotate.Stop()

	for {
		select {
		case req := <-h.AuthCh:
			adm, err := h.authorize(req.Creds)
			req.Reply <- AuthResult{Admission: adm, Err: err}
		case req := <-h.CreateCh:
			req.Reply <- h.handleCreate(req)
		case req := <-h.StatusCh:
			req.Reply <- h.roomStatuses()
		case c := <-h.RegisterCh:
			h.handleRegister(c)
		case c := <-h.UnregisterCh:
			h.handleUnregister(c)
		case in := <-h.InboundCh:
			h.handleInbound(in.Client, in.Event)
		case adm := <-h.AbandonCh:
			h.owners.Release(adm.RoomID, adm.Identity)
		case roomID := <-h.destroyCh:
			h.completeDestroy(roomID)
		case <-rotate.C:
			h.rotateLogs()
		case <-h.quit:
			h.saveRooms()
			return
		}
	}
}

// Stop makes Run flush the registry snapshot and return.
func (h *Hub) Stop() {
	close(h.quit)
}

// Authorize runs the connection gate, serialized through the event loop.
func (h *Hub) Authorize(creds Credentials) (Admission, error) {
	reply := make(chan AuthResult, 1)
	h.AuthCh <- AuthRequest{Creds: creds, Reply: reply}
	res := <-reply
	return res.Admission, res.Err
}

// CreateRoom creates a room and its empty message log.
func (h *Hub) CreateRoom(name, password, email string) (roomID, inviteCode string, err error) {
	reply := make(chan CreateResult, 1)
	h.CreateCh <- CreateRequest{Name: name, Password: password, Email: email, Reply: reply}
	res := <-reply
	return res.RoomID, res.InviteCode, res.Err
}

// RoomsStatus reports every room with its current occupancy.
func (h *Hub) RoomsStatus() []models.RoomStatus {
	reply := make(chan []models.RoomStatus, 1)
	h.StatusCh <- StatusRequest{Reply: reply}
	return <-reply
}

// Abandon returns an admission that never became a connection (the upgrade
// failed), releasing the owner slot it may hold.
func (h *Hub) Abandon(adm Admission) {
	h.AbandonCh <- adm
}

func (h *Hub) handleCreate(req CreateRequest) CreateResult {
	if h.Store.LogExists(req.Name) {
		return CreateResult{Err: ErrRoomNameTaken}
	}
	if err := h.Store.CreateLog(req.Name); err != nil {
		return CreateResult{Err: fmt.Errorf("create chat log file: %w", err)}
	}

	roomID := uuid.NewString()
	room := &models.Room{
		ID:           roomID,
		Name:         req.Name,
		Password:     req.Password,
		OwnerEmail:   req.Email,
		InviteCode:   h.newInviteCode(),
		CreatedAt:    time.Now(),
		UserProfiles: make(map[string]*models.Profile),
		Users:        make(map[string]*models.Member),
	}
	h.rooms[roomID] = room
	h.saveRooms()

	h.Log.WithFields(logrus.Fields{"room": roomID, "name": req.Name}).Info("room created")
	return CreateResult{RoomID: roomID, InviteCode: room.InviteCode}
}

func (h *Hub) roomStatuses() []models.RoomStatus {
	statuses := make([]models.RoomStatus, 0, len(h.rooms))
	for id, room := range h.rooms {
		statuses = append(statuses, models.RoomStatus{
			RoomID:    id,
			Name:      room.Name,
			UserCount: len(room.Users),
			IsActive:  len(room.Users) > 0,
		})
	}
	return statuses
}

// handleRegister attaches an admitted connection to its room: profile
// initialization, roster insert and broadcast, session event, then history
// replay to the new connection only.
func (h *Hub) handleRegister(c Client) {
	roomID, identity := c.GetRoomID(), c.GetUserID()

	room, ok := h.rooms[roomID]
	if !ok {
		// Destroyed between gate and register.
		h.push(c, models.NewEvent(models.EventForceDisconnect, "The room no longer exists."))
		c.Close()
		h.owners.Release(roomID, identity)
		return
	}

	profile, ok := room.UserProfiles[identity]
	if !ok {
		profile = &models.Profile{}
		room.UserProfiles[identity] = profile
	}
	if profile.ProfileImage == "" {
		profile.ProfileImage = randomAvatar()
		h.saveRooms()
	}

	nickname := profile.Nickname
	if nickname == "" {
		nickname = "User-" + shortID(identity)
	}
	room.Users[identity] = &models.Member{
		ID:           identity,
		Nickname:     nickname,
		ProfileImage: profile.ProfileImage,
		IsAdmin:      c.IsAdmin(),
	}

	if h.clients[roomID] == nil {
		h.clients[roomID] = make(map[string]Client)
	}
	if old, ok := h.clients[roomID][identity]; ok && old != c {
		// Same identity reconnected; the stale connection is superseded.
		old.Close()
	}
	h.clients[roomID][identity] = c

	h.Log.WithFields(logrus.Fields{"room": roomID, "user": shortID(identity), "host": c.IsAdmin()}).Info("user connected")
	h.broadcastUserList(room)

	token, err := h.Tokens.Issue(identity, roomID)
	if err != nil {
		h.Log.Errorf("failed to issue session token: %v", err)
	}
	h.push(c, models.NewEvent(models.EventSession, models.SessionPayload{
		UserID:       identity,
		SessionToken: token,
		RoomName:     room.Name,
		InviteCode:   room.InviteCode,
		Nickname:     nickname,
		ProfileImage: profile.ProfileImage,
		IsAdmin:      c.IsAdmin(),
	}))

	history, err := h.Store.ReadLog(room.Name)
	if err != nil {
		h.Log.Errorf("failed to read chat history for room %q: %v", room.Name, err)
		return
	}
	if history == nil {
		history = []models.Message{}
	}
	h.push(c, models.NewEvent(models.EventChatHistory, history))
}

// handleUnregister detaches a connection. Stale unregisters from superseded
// connections are ignored so the live connection's state survives.
func (h *Hub) handleUnregister(c Client) {
	roomID, identity := c.GetRoomID(), c.GetUserID()

	if cur, ok := h.clients[roomID][identity]; !ok || cur != c {
		c.Close()
		return
	}
	h.detach(c)

	if room, ok := h.rooms[roomID]; ok {
		h.Log.WithFields(logrus.Fields{"room": roomID, "user": shortID(identity)}).Info("user disconnected")
		h.broadcastUserList(room)
	}
}

// detach removes a connection from the roster and client maps, frees the
// owner slot if this identity held it, and closes the connection. Callers
// broadcast roster changes afterwards.
func (h *Hub) detach(c Client) {
	roomID, identity := c.GetRoomID(), c.GetUserID()

	delete(h.clients[roomID], identity)
	if len(h.clients[roomID]) == 0 {
		delete(h.clients, roomID)
	}
	h.owners.Release(roomID, identity)
	if room, ok := h.rooms[roomID]; ok {
		delete(room.Users, identity)
	}
	c.Close()
}

func (h *Hub) handleInbound(c Client, ev models.Event) {
	switch ev.Event {
	case models.EventSendMessage:
		h.handleSendMessage(c, ev.Data)
	case models.EventSetProfile:
		h.handleSetProfile(c, ev.Data)
	case models.EventKickUser:
		h.handleKickUser(c, ev.Data)
	case models.EventDestroyRoom:
		h.handleDestroyRoom(c)
	default:
		h.Log.Debugf("dropping unknown event %q from %s", ev.Event, shortID(c.GetUserID()))
	}
}

func (h *Hub) handleSendMessage(c Client, data json.RawMessage) {
	var p models.SendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil || p.Message == "" {
		return
	}

	room, ok := h.rooms[c.GetRoomID()]
	if !ok {
		return
	}
	sender, ok := room.Users[c.GetUserID()]
	if !ok {
		return
	}

	msg := models.Message{
		UserID:       sender.ID,
		Nickname:     sender.Nickname,
		ProfileImage: sender.ProfileImage,
		Message:      p.Message,
		Timestamp:    time.Now(),
	}
	h.broadcast(room.ID, models.NewEvent(models.EventReceiveMessage, msg))

	if err := h.Store.AppendLog(room.Name, msg); err != nil {
		h.Log.Errorf("failed to save message for room %q: %v", room.Name, err)
	}
}

func (h *Hub) handleSetProfile(c Client, data json.RawMessage) {
	var p models.SetProfilePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}

	roomID, identity := c.GetRoomID(), c.GetUserID()
	room, ok := h.rooms[roomID]
	if !ok {
		return
	}
	member, ok := room.Users[identity]
	if !ok {
		return
	}

	for id, other := range room.Users {
		if id != identity && other.Nickname == p.Nickname {
			h.push(c, models.NewEvent(models.EventSetProfileResult, models.SetProfileResult{
				Success: false,
				Message: fmt.Sprintf("The nickname %q is already in use.", p.Nickname),
			}))
			return
		}
	}

	member.Nickname = p.Nickname
	profile, ok := room.UserProfiles[identity]
	if !ok {
		profile = &models.Profile{}
		room.UserProfiles[identity] = profile
	}
	profile.Nickname = p.Nickname
	member.ProfileImage = profile.ProfileImage

	h.saveRooms()
	h.broadcastUserList(room)
	h.push(c, models.NewEvent(models.EventSetProfileResult, models.SetProfileResult{Success: true}))
}

func (h *Hub) handleKickUser(c Client, data json.RawMessage) {
	if !c.IsAdmin() {
		h.push(c, models.NewEvent(models.EventSystemMessage, "You do not have permission to kick users."))
		return
	}

	var p models.KickUserPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	if p.TargetUserID == c.GetUserID() {
		h.push(c, models.NewEvent(models.EventSystemMessage, "You cannot kick yourself."))
		return
	}

	roomID := c.GetRoomID()
	room, ok := h.rooms[roomID]
	if !ok {
		return
	}
	target, ok := h.clients[roomID][p.TargetUserID]
	if !ok {
		h.push(c, models.NewEvent(models.EventSystemMessage, "The user to be kicked could not be found."))
		return
	}

	nickname := "A user"
	if m, ok := room.Users[p.TargetUserID]; ok {
		nickname = m.Nickname
	}

	h.push(target, models.NewEvent(models.EventForceDisconnect, "You have been kicked by the host."))
	h.detach(target)

	h.Log.WithFields(logrus.Fields{"room": roomID, "user": shortID(p.TargetUserID)}).Info("user kicked")
	h.broadcast(roomID, models.NewEvent(models.EventSystemMessage, fmt.Sprintf("%s has been kicked.", nickname)))
	h.broadcastUserList(room)
}

// handleDestroyRoom announces the countdown and removes the room from the
// registry immediately: no join, message or status can see it afterwards.
// Socket teardown and log deletion happen when the grace period expires; the
// countdown is not cancellable.
func (h *Hub) handleDestroyRoom(c Client) {
	if !c.IsAdmin() {
		h.push(c, models.NewEvent(models.EventSystemMessage, "You do not have permission to destroy this room."))
		return
	}

	roomID := c.GetRoomID()
	room, ok := h.rooms[roomID]
	if !ok {
		return
	}

	h.broadcast(roomID, models.NewEvent(models.EventSystemMessage,
		"The host has destroyed the room. Disconnecting in 3 seconds."))

	delete(h.rooms, roomID)
	h.pendingDestroy[roomID] = room

	time.AfterFunc(h.DestroyGrace, func() {
		h.destroyCh <- roomID
	})
}

func (h *Hub) completeDestroy(roomID string) {
	room, ok := h.pendingDestroy[roomID]
	if !ok {
		return
	}

	for _, c := range h.clients[roomID] {
		c.Close()
	}
	delete(h.clients, roomID)
	if holder, ok := h.owners.Holder(roomID); ok {
		h.owners.Release(roomID, holder)
	}

	if err := h.Store.DeleteLog(room.Name); err != nil {
		h.Log.Errorf("failed to delete chat log for room %q: %v", room.Name, err)
	}
	delete(h.pendingDestroy, roomID)
	h.saveRooms()

	h.Log.WithFields(logrus.Fields{"room": roomID, "name": room.Name}).Info("room destroyed")
}

// rotateLogs truncates the log of every room older than the retention
// window. Files stay in place and the registry is untouched.
func (h *Hub) rotateLogs() {
	cutoff := time.Now().Add(-config.LogRetention)
	for _, room := range h.rooms {
		if room.CreatedAt.After(cutoff) {
			continue
		}
		if err := h.Store.TruncateLog(room.Name); err != nil {
			h.Log.Errorf("failed to clear chat history for room %q: %v", room.Name, err)
			continue
		}
		h.Log.Infof("cleared chat history for old room %q", room.Name)
	}
}

func (h *Hub) broadcastUserList(room *models.Room) {
	h.broadcast(room.ID, models.NewEvent(models.EventUpdateUserList, room.MemberList()))
}

// broadcast pushes an event to every connection in the room. Connections too
// slow to keep up are detached, matching how the hub treats any connection
// it can no longer write to.
func (h *Hub) broadcast(roomID string, ev models.Event) {
	var stalled []Client
	for _, c := range h.clients[roomID] {
		if !h.push(c, ev) {
			stalled = append(stalled, c)
		}
	}
	for _, c := range stalled {
		h.Log.WithFields(logrus.Fields{"room": roomID, "user": shortID(c.GetUserID())}).Warn("dropping slow connection")
		h.detach(c)
	}
}

// push delivers an event to one connection without blocking the loop.
func (h *Hub) push(c Client, ev models.Event) bool {
	select {
	case c.GetSendChannel() <- ev:
		return true
	default:
		return false
	}
}

func (h *Hub) saveRooms() {
	if err := h.Store.SaveRooms(h.rooms); err != nil {
		h.Log.Errorf("failed to save rooms state: %v", err)
	}
}

func randomAvatar() string {
	return fmt.Sprintf("/profile%d.png", rand.Intn(config.AvatarCount)+1)
}

func shortID(id string) string {
	if len(id) > 5 {
		return id[:5]
	}
	return id
}
