package realtime

import (
	"sync"
	"testing"

	"github.com/rktkdduq01/study-app-sub002/internal/pkg/errs"
)

func newTestDirectory() (*Directory, *Registry) {
	reg, _ := newTestRegistry(0)
	return NewDirectory(reg), reg
}

func TestCapacityNeverExceededUnderConcurrentJoins(t *testing.T) {
	t.Parallel()

	const capacity = 5
	const attempts = 2 * capacity

	dir, reg := newTestDirectory()
	if _, err := dir.CreateRoom("quiz-lobby", RoomSession, capacity); err != nil {
		t.Fatalf("create room: %v", err)
	}

	connIDs := make([]string, attempts)
	userIDs := make([]string, attempts)
	for i := 0; i < attempts; i++ {
		userIDs[i] = "user-" + string(rune('a'+i))
		id, err := reg.Register(userIDs[i], &fakeTransport{})
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		connIDs[i] = id
	}

	var wg sync.WaitGroup
	results := make([]*errs.CustomError, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = dir.Join("quiz-lobby", userIDs[i], connIDs[i])
		}(i)
	}
	wg.Wait()

	admitted := 0
	rejected := 0
	for _, res := range results {
		switch {
		case res == nil:
			admitted++
		case res.Code == errs.ErrRoomIsFull:
			rejected++
		default:
			t.Fatalf("unexpected join error: %v", res)
		}
	}

	if admitted != capacity {
		t.Fatalf("expected exactly %d admitted, got %d", capacity, admitted)
	}
	if rejected != attempts-capacity {
		t.Fatalf("expected %d rejected with CapacityExceeded, got %d", attempts-capacity, rejected)
	}
	if got := len(dir.Members("quiz-lobby")); got != capacity {
		t.Fatalf("expected %d members, got %d", capacity, got)
	}
}

func TestJoinSameConnectionTwiceReturnsAlreadyMember(t *testing.T) {
	t.Parallel()

	dir, reg := newTestDirectory()
	dir.CreateRoom("room-1", RoomDirect, 2)

	connID, _ := reg.Register("user-1", &fakeTransport{})

	if err := dir.Join("room-1", "user-1", connID); err != nil {
		t.Fatalf("first join: %v", err)
	}
	err := dir.Join("room-1", "user-1", connID)
	if err == nil || err.Code != errs.ErrAlreadyMember {
		t.Fatalf("expected AlreadyMember, got %v", err)
	}
}

func TestSecondDeviceDoesNotConsumeCapacity(t *testing.T) {
	t.Parallel()

	dir, reg := newTestDirectory()
	dir.CreateRoom("pair", RoomDirect, 2)

	phone, _ := reg.Register("user-1", &fakeTransport{})
	laptop, _ := reg.Register("user-1", &fakeTransport{})
	other, _ := reg.Register("user-2", &fakeTransport{})

	if err := dir.Join("pair", "user-1", phone); err != nil {
		t.Fatalf("join phone: %v", err)
	}
	if err := dir.Join("pair", "user-1", laptop); err != nil {
		t.Fatalf("join laptop: %v", err)
	}
	if err := dir.Join("pair", "user-2", other); err != nil {
		t.Fatalf("join second user: %v", err)
	}

	if got := len(dir.Members("pair")); got != 2 {
		t.Fatalf("expected 2 member users, got %d", got)
	}
}

func TestEphemeralRoomDestroyedWhenEmpty(t *testing.T) {
	t.Parallel()

	dir, reg := newTestDirectory()
	dir.CreateRoom("scratch", RoomDirect, 0)

	connID, _ := reg.Register("user-1", &fakeTransport{})
	dir.Join("scratch", "user-1", connID)

	if err := dir.Leave("scratch", "user-1", connID); err != nil {
		t.Fatalf("leave: %v", err)
	}

	if dir.Room("scratch") != nil {
		t.Fatal("expected empty ephemeral room to be destroyed")
	}
}

func TestGuildChannelSurvivesEmptiness(t *testing.T) {
	t.Parallel()

	dir, reg := newTestDirectory()
	dir.CreateRoom("guild:alchemists", RoomGuild, 0)

	connID, _ := reg.Register("user-1", &fakeTransport{})
	dir.Join("guild:alchemists", "user-1", connID)
	dir.Leave("guild:alchemists", "user-1", connID)

	if dir.Room("guild:alchemists") == nil {
		t.Fatal("expected guild channel to outlive emptiness")
	}

	dir.DeleteRoom("guild:alchemists")
	if dir.Room("guild:alchemists") != nil {
		t.Fatal("expected explicit deletion to remove guild channel")
	}
}

func TestUnregisterDropsRoomMembershipForThatConnectionOnly(t *testing.T) {
	t.Parallel()

	dir, reg := newTestDirectory()
	dir.CreateRoom("study", RoomGuild, 0)

	phone, _ := reg.Register("user-1", &fakeTransport{})
	laptop, _ := reg.Register("user-1", &fakeTransport{})
	dir.Join("study", "user-1", phone)
	dir.Join("study", "user-1", laptop)

	reg.Unregister(phone)

	if !dir.IsMember("study", "user-1") {
		t.Fatal("expected user to remain a member while laptop connection lives")
	}

	reg.Unregister(laptop)

	if dir.IsMember("study", "user-1") {
		t.Fatal("expected user membership dropped with last connection")
	}
}

func TestBroadcastExcludesSenderAndCountsDeliveries(t *testing.T) {
	t.Parallel()

	dir, reg := newTestDirectory()
	dir.CreateRoom("class", RoomGuild, 0)

	sender := &fakeTransport{}
	receiverA := &fakeTransport{}
	receiverB := &fakeTransport{}

	senderConn, _ := reg.Register("sender", sender)
	connA, _ := reg.Register("user-a", receiverA)
	connB, _ := reg.Register("user-b", receiverB)

	dir.Join("class", "sender", senderConn)
	dir.Join("class", "user-a", connA)
	dir.Join("class", "user-b", connB)

	senderBaseline := sender.eventCount()
	baselineA := receiverA.eventCount()
	baselineB := receiverB.eventCount()

	delivered := dir.Broadcast("class", NewEvent(EventChatMessage, nil), "sender")

	if delivered != 2 {
		t.Fatalf("expected 2 deliveries, got %d", delivered)
	}
	if sender.eventCount() != senderBaseline {
		t.Fatal("expected sender to be excluded from its own broadcast")
	}
	if receiverA.eventCount() != baselineA+1 || receiverB.eventCount() != baselineB+1 {
		t.Fatal("expected each receiver to get exactly one event")
	}
}

func TestBroadcastSkipsDeadMembersWithoutFailing(t *testing.T) {
	t.Parallel()

	dir, reg := newTestDirectory()
	dir.CreateRoom("class", RoomGuild, 0)

	alive := &fakeTransport{}
	dead := &fakeTransport{}

	aliveConn, _ := reg.Register("alive", alive)
	deadConn, _ := reg.Register("dead", dead)
	dir.Join("class", "alive", aliveConn)
	dir.Join("class", "dead", deadConn)

	dead.fail()
	baseline := alive.eventCount()

	delivered := dir.Broadcast("class", NewEvent(EventChatMessage, nil), "")

	if delivered != 1 {
		t.Fatalf("expected 1 delivery (dead member not counted), got %d", delivered)
	}
	if alive.eventCount() != baseline+1 {
		t.Fatal("expected live member to receive the broadcast")
	}
	if reg.Connection(deadConn) != nil {
		t.Fatal("expected dead member's connection evicted during broadcast")
	}
}

func TestJoinUnknownRoomReturnsNotFound(t *testing.T) {
	t.Parallel()

	dir, reg := newTestDirectory()
	connID, _ := reg.Register("user-1", &fakeTransport{})

	err := dir.Join("nowhere", "user-1", connID)
	if err == nil || err.Code != errs.ErrRoomNotFound {
		t.Fatalf("expected RoomNotFound, got %v", err)
	}
}
