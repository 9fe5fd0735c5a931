package node

import (
	"errors"
	"math"
	"testing"

	"github.com/mosaicnetworks/gossiplearn/src/codec"
	"github.com/mosaicnetworks/gossiplearn/src/common"
	"github.com/mosaicnetworks/gossiplearn/src/model"
	"github.com/mosaicnetworks/gossiplearn/src/net"
)

const tolerance = 1e-9

// mailbox records sent messages instead of delivering them.
type mailbox struct {
	sent []*net.Message
}

func (m *mailbox) Send(target string, msg *net.Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

// pop removes and returns the oldest recorded message.
func (m *mailbox) pop(t *testing.T) *net.Message {
	t.Helper()
	if len(m.sent) == 0 {
		t.Fatal("no message sent")
	}
	msg := m.sent[0]
	m.sent = m.sent[1:]
	return msg
}

func linearHolder(value, age float64) model.Holder {
	return model.Holder{&model.Linear{Weights: []float64{value, value}, ModelAge: age}}
}

func checkValue(t *testing.T, name string, h model.Holder, want float64) {
	t.Helper()
	l := h[0].(*model.Linear)
	for _, w := range l.Weights {
		if math.Abs(w-want) > tolerance {
			t.Fatalf("%s = %v, want %v", name, l.Weights, want)
		}
	}
}

type pair struct {
	a, b         *Connection
	sharedA      model.Holder
	sharedB      model.Holder
	toA, toB     *mailbox
	aAddr, bAddr string
}

// newPair connects an outgoing connection on A with an incoming connection on
// B. A starts at 10 and B at 0.
func newPair(t *testing.T, prototype codec.Codec) *pair {
	return newPairWith(t, prototype, linearHolder(10, 1), linearHolder(0, 1))
}

// newPairWith is newPair with the given initial models.
func newPairWith(t *testing.T, prototype codec.Codec, sharedA, sharedB model.Holder) *pair {
	p := &pair{
		sharedA: sharedA,
		sharedB: sharedB,
		toA:     &mailbox{},
		toB:     &mailbox{},
		aAddr:   "A",
		bAddr:   "B",
	}
	logger := common.NewTestEntry(t, common.TestLogLevel)
	p.a = NewConnection("A", "B", PushPullProtocol, true, 0.5, prototype, p.sharedA, p.toB, logger)
	p.b = NewConnection("B", "A", PushPullProtocol, false, 0.5, prototype, p.sharedB, p.toA, logger)
	return p
}

func (p *pair) push(t *testing.T) {
	t.Helper()
	if err := p.a.SendPush(); err != nil {
		t.Fatal(err)
	}
}

func (p *pair) deliverToB(t *testing.T) {
	t.Helper()
	if err := p.b.ProcessMsg(p.toB.pop(t)); err != nil {
		t.Fatal(err)
	}
}

func (p *pair) deliverToA(t *testing.T) {
	t.Helper()
	if err := p.a.ProcessMsg(p.toA.pop(t)); err != nil {
		t.Fatal(err)
	}
}

func TestExchange(t *testing.T) {
	p := newPair(t, codec.Identity{})

	p.push(t)
	p.deliverToB(t)

	checkValue(t, "B after push", p.sharedB, 2.5)

	p.deliverToA(t)

	checkValue(t, "A after reply", p.sharedA, 7.5)
	checkValue(t, "B after reply", p.sharedB, 2.5)

	if p.a.TransactionCounter() != 1 || p.b.TransactionCounter() != 1 {
		t.Fatalf("transaction counters = %d, %d", p.a.TransactionCounter(), p.b.TransactionCounter())
	}
	if p.a.SequenceID() != 1 || p.b.SequenceID() != 1 {
		t.Fatalf("sequence ids = %d, %d", p.a.SequenceID(), p.b.SequenceID())
	}
	if age := p.sharedA[0].Age(); math.Abs(age-1) > tolerance {
		t.Fatalf("age = %v, want 1", age)
	}
}

func TestExchangePreservesSum(t *testing.T) {
	p := newPair(t, codec.Identity{})
	p.sharedB[0].SetAge(3)

	sum := func() float64 {
		a := p.sharedA[0].(*model.Linear)
		b := p.sharedB[0].(*model.Linear)
		return a.Weights[0]*a.ModelAge + b.Weights[0]*b.ModelAge
	}
	before := sum()

	for i := 0; i < 5; i++ {
		p.push(t)
		p.deliverToB(t)
		p.deliverToA(t)
	}

	if math.Abs(sum()-before) > 1e-6 {
		t.Fatalf("weighted sum = %v, want %v", sum(), before)
	}
}

func TestStaleReply(t *testing.T) {
	p := newPair(t, codec.Identity{})

	p.push(t)
	p.deliverToB(t)
	stale := p.toA.pop(t)

	p.push(t)
	if p.a.SequenceID() != 2 {
		t.Fatalf("sequence id = %d, want 2", p.a.SequenceID())
	}

	before := p.sharedA.Clone()
	if err := p.a.ProcessMsg(stale); err != nil {
		t.Fatal(err)
	}

	checkValue(t, "A after stale reply", p.sharedA, before[0].(*model.Linear).Weights[0])
	if p.a.TransactionCounter() != 0 {
		t.Fatalf("transaction counter = %d, want 0", p.a.TransactionCounter())
	}
	if s := p.a.Stats(); s.Stale != 1 || s.Updates != 0 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestDuplicateReply(t *testing.T) {
	p := newPair(t, codec.Identity{})

	p.push(t)
	p.deliverToB(t)
	reply := p.toA.pop(t)

	if err := p.a.ProcessMsg(reply); err != nil {
		t.Fatal(err)
	}
	if err := p.a.ProcessMsg(reply); err != nil {
		t.Fatal(err)
	}

	checkValue(t, "A", p.sharedA, 7.5)
	if s := p.a.Stats(); s.Duplicates != 1 || s.Updates != 1 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestStalePush(t *testing.T) {
	p := newPair(t, codec.Identity{})

	p.push(t)
	first := p.toB.pop(t)
	p.push(t)
	p.deliverToB(t)

	before := p.sharedB.Clone()
	if err := p.b.ProcessMsg(first); err != nil {
		t.Fatal(err)
	}

	checkValue(t, "B after stale push", p.sharedB, before[0].(*model.Linear).Weights[0])
	if p.b.SequenceID() != 2 {
		t.Fatalf("sequence id = %d, want 2", p.b.SequenceID())
	}
	if len(p.toA.sent) != 1 {
		t.Fatalf("%d replies sent, want 1", len(p.toA.sent))
	}
	if s := p.b.Stats(); s.Stale != 1 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestLostReplyRollsBack(t *testing.T) {
	for _, proto := range []codec.Codec{codec.Identity{}, newAdaptive(t)} {
		p := newPair(t, proto)

		// first exchange, reply lost
		p.push(t)
		p.deliverToB(t)
		p.toA.pop(t)

		// second exchange
		p.push(t)
		p.deliverToB(t)
		p.deliverToA(t)

		if s := p.b.Stats(); s.Rollbacks != 1 {
			t.Fatalf("stats = %+v", s)
		}
		if p.a.TransactionCounter() != 1 || p.b.TransactionCounter() != 1 {
			t.Fatalf("transaction counters = %d, %d", p.a.TransactionCounter(), p.b.TransactionCounter())
		}

		// same outcome as a single clean exchange
		ref := newPair(t, proto)
		ref.push(t)
		ref.deliverToB(t)
		ref.deliverToA(t)

		checkValue(t, "A", p.sharedA, ref.sharedA[0].(*model.Linear).Weights[0])
		checkValue(t, "B", p.sharedB, ref.sharedB[0].(*model.Linear).Weights[0])

		// codecs stayed in lock-step: a third exchange matches too
		p.push(t)
		p.deliverToB(t)
		p.deliverToA(t)
		ref.push(t)
		ref.deliverToB(t)
		ref.deliverToA(t)

		checkValue(t, "A", p.sharedA, ref.sharedA[0].(*model.Linear).Weights[0])
		checkValue(t, "B", p.sharedB, ref.sharedB[0].(*model.Linear).Weights[0])
	}
}

func TestTwoPushesBeforeReply(t *testing.T) {
	p := newPair(t, codec.Identity{})

	p.push(t)
	p.push(t)
	p.deliverToB(t)
	p.deliverToB(t)
	p.deliverToA(t) // stale, answers push 1
	p.deliverToA(t)

	checkValue(t, "A", p.sharedA, 7.5)
	checkValue(t, "B", p.sharedB, 2.5)

	if s := p.b.Stats(); s.Rollbacks != 1 {
		t.Fatalf("B stats = %+v", s)
	}
	if s := p.a.Stats(); s.Stale != 1 || s.Updates != 1 {
		t.Fatalf("A stats = %+v", s)
	}
}

func TestRollbackInvariant(t *testing.T) {
	p := newPair(t, codec.Identity{})

	p.push(t)
	p.deliverToB(t)
	p.deliverToA(t)

	msg := &net.Message{
		SourceID:           "A",
		TargetID:           "B",
		ProtocolID:         PushPullProtocol,
		Payload:            linearHolder(1, 1),
		SequenceID:         2,
		TransactionCounter: 5,
	}

	err := p.b.ProcessMsg(msg)
	if !errors.Is(err, ErrRollbackInvariant) {
		t.Fatalf("err = %v, want ErrRollbackInvariant", err)
	}
}

func TestUpdateWithoutPendingSend(t *testing.T) {
	p := newPair(t, codec.Identity{})

	_, err := p.a.update(&net.Message{Payload: linearHolder(1, 1)})
	if !errors.Is(err, ErrNoPendingSend) {
		t.Fatalf("err = %v, want ErrNoPendingSend", err)
	}
}

func TestRoles(t *testing.T) {
	p := newPair(t, codec.Identity{})

	if err := p.b.SendPush(); err == nil {
		t.Fatal("incoming connection pushed")
	}

	p.push(t)
	if err := p.a.ProcessMsg(p.toB.pop(t)); err == nil {
		t.Fatal("outgoing connection accepted a push")
	}
}

func newAdaptive(t *testing.T) codec.Codec {
	c, err := codec.New(codec.AdaptiveName, codec.Params{})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestRestartedResponderAdoptsCounter(t *testing.T) {
	p := newPair(t, codec.Identity{})

	for i := 0; i < 3; i++ {
		p.push(t)
		p.deliverToB(t)
		p.deliverToA(t)
	}

	// B restarts with the models it had, and a new connection
	p.b = NewConnection("B", "A", PushPullProtocol, false, 0.5, codec.Identity{}, p.sharedB, p.toA,
		common.NewTestEntry(t, common.TestLogLevel))

	p.push(t)
	p.deliverToB(t)
	p.deliverToA(t)

	if p.a.TransactionCounter() != 4 || p.b.TransactionCounter() != 4 {
		t.Fatalf("transaction counters = %d, %d", p.a.TransactionCounter(), p.b.TransactionCounter())
	}
	if s := p.b.Stats(); s.Rollbacks != 0 || s.Updates != 1 {
		t.Fatalf("stats = %+v", s)
	}

	// lost replies are still rolled back afterwards
	p.push(t)
	p.deliverToB(t)
	p.toA.pop(t)
	p.push(t)
	p.deliverToB(t)
	p.deliverToA(t)

	if s := p.b.Stats(); s.Rollbacks != 1 {
		t.Fatalf("stats = %+v", s)
	}
	if p.a.TransactionCounter() != 5 || p.b.TransactionCounter() != 5 {
		t.Fatalf("transaction counters = %d, %d", p.a.TransactionCounter(), p.b.TransactionCounter())
	}
}

func TestNegativeTransactionCounter(t *testing.T) {
	p := newPair(t, codec.Identity{})

	err := p.b.ProcessMsg(&net.Message{
		SourceID:           "A",
		ProtocolID:         PushPullProtocol,
		Payload:            linearHolder(1, 1),
		SequenceID:         1,
		TransactionCounter: -1,
	})
	if err == nil {
		t.Fatal("negative transaction counter accepted")
	}
	if len(p.toA.sent) != 0 {
		t.Fatal("reply sent to an invalid push")
	}
}

// malformed returns a copy of msg whose payload holds one model too many.
func malformed(msg *net.Message) *net.Message {
	bad := *msg
	bad.Payload = append(msg.Payload.Clone(), msg.Payload.Clone()...)
	return &bad
}

func TestFailedReplyKeepsCodecs(t *testing.T) {
	proto := newAdaptive(t)
	p := newPair(t, proto)

	p.push(t)
	p.deliverToB(t)
	reply := p.toA.pop(t)

	if err := p.a.ProcessMsg(malformed(reply)); err == nil {
		t.Fatal("malformed reply accepted")
	}
	if p.a.TransactionCounter() != 0 {
		t.Fatalf("transaction counter = %d, want 0", p.a.TransactionCounter())
	}
	checkValue(t, "A after malformed reply", p.sharedA, 10)

	if err := p.a.ProcessMsg(reply); err != nil {
		t.Fatal(err)
	}

	ref := newPair(t, proto)
	ref.push(t)
	ref.deliverToB(t)
	ref.deliverToA(t)

	checkValue(t, "A", p.sharedA, ref.sharedA[0].(*model.Linear).Weights[0])

	// the next exchange decodes with the same codec state as the reference
	p.push(t)
	p.deliverToB(t)
	p.deliverToA(t)
	ref.push(t)
	ref.deliverToB(t)
	ref.deliverToA(t)

	checkValue(t, "A", p.sharedA, ref.sharedA[0].(*model.Linear).Weights[0])
	checkValue(t, "B", p.sharedB, ref.sharedB[0].(*model.Linear).Weights[0])
}

func TestFailedPushSendsNoReply(t *testing.T) {
	proto := newAdaptive(t)
	p := newPair(t, proto)

	p.push(t)
	if err := p.b.ProcessMsg(malformed(p.toB.pop(t))); err == nil {
		t.Fatal("malformed push accepted")
	}
	if len(p.toA.sent) != 0 {
		t.Fatal("reply sent to a malformed push")
	}
	if p.b.TransactionCounter() != 0 {
		t.Fatalf("transaction counter = %d, want 0", p.b.TransactionCounter())
	}
	checkValue(t, "B after malformed push", p.sharedB, 0)

	p.push(t)
	p.deliverToB(t)
	p.deliverToA(t)

	if s := p.b.Stats(); s.Rollbacks != 0 {
		t.Fatalf("stats = %+v", s)
	}

	ref := newPair(t, proto)
	ref.push(t)
	ref.deliverToB(t)
	ref.deliverToA(t)

	checkValue(t, "A", p.sharedA, ref.sharedA[0].(*model.Linear).Weights[0])
	checkValue(t, "B", p.sharedB, ref.sharedB[0].(*model.Linear).Weights[0])
}

func sparseHolder(weights map[int]float64) model.Holder {
	return model.Holder{&model.Sparse{Weights: weights, ModelAge: 1}}
}

func checkSparse(t *testing.T, name string, got, want model.Holder) {
	t.Helper()
	g := got[0].(*model.Sparse)
	w := want[0].(*model.Sparse)
	keys := map[int]bool{}
	for k := range g.Weights {
		keys[k] = true
	}
	for k := range w.Weights {
		keys[k] = true
	}
	for k := range keys {
		if math.Abs(g.Weights[k]-w.Weights[k]) > tolerance {
			t.Fatalf("%s[%d] = %v, want %v", name, k, g.Weights[k], w.Weights[k])
		}
	}
	if math.Abs(g.ModelAge-w.ModelAge) > tolerance {
		t.Fatalf("%s age = %v, want %v", name, g.ModelAge, w.ModelAge)
	}
}

func TestLostReplyRollsBackSparse(t *testing.T) {
	proto := newAdaptive(t)

	// A and B share index 2 only; the lost exchange gives B index 1
	a := func() model.Holder { return sparseHolder(map[int]float64{1: 0.04, 2: 0.02}) }
	b := func() model.Holder { return sparseHolder(map[int]float64{2: 0.06, 3: 0.01}) }

	p := newPairWith(t, proto, a(), b())

	p.push(t)
	p.deliverToB(t)
	if _, ok := p.sharedB[0].(*model.Sparse).Weights[1]; !ok {
		t.Fatal("push did not add index 1 to B")
	}
	p.toA.pop(t)

	p.push(t)
	p.deliverToB(t)
	p.deliverToA(t)

	if s := p.b.Stats(); s.Rollbacks != 1 {
		t.Fatalf("stats = %+v", s)
	}

	ref := newPairWith(t, proto, a(), b())
	ref.push(t)
	ref.deliverToB(t)
	ref.deliverToA(t)

	checkSparse(t, "A", p.sharedA, ref.sharedA)
	checkSparse(t, "B", p.sharedB, ref.sharedB)
}
