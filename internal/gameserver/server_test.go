package gameserver_test

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/wayfarer/internal/game/action"
	"github.com/cory-johannsen/wayfarer/internal/game/character"
	"github.com/cory-johannsen/wayfarer/internal/game/dice"
	"github.com/cory-johannsen/wayfarer/internal/gameserver"
	"github.com/cory-johannsen/wayfarer/internal/storage/sqlite"
	"github.com/cory-johannsen/wayfarer/internal/testutil"
)

type env struct {
	f      *testutil.Fixture
	store  *sqlite.Store
	client *gameserver.ActionServiceClient
	conn   *grpc.ClientConn
}

// newEnv serves an ActionServer over an in-memory listener.
func newEnv(t *testing.T) *env {
	t.Helper()
	f := testutil.NewFixture()
	store := testutil.NewSQLiteStore(t, f.Content)
	logger := zaptest.NewLogger(t)
	engine := action.NewEngine(store, f.Catalog, dice.MustSequence(0.1), logger)
	svc := gameserver.NewActionServer(engine, store, f.Catalog, logger)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	gameserver.RegisterActionServiceServer(srv, svc)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &env{f: f, store: store, client: gameserver.NewActionServiceClient(conn), conn: conn}
}

func ctxT(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func requireCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want, status.Code(err), err.Error())
}

func TestResolvePlayerAndCreateCharacter(t *testing.T) {
	e := newEnv(t)
	ctx := ctxT(t)
	wallet := testutil.RandomWallet(t)

	p, err := e.client.ResolvePlayer(ctx, wallet, "  wanderer ")
	require.NoError(t, err)
	assert.Equal(t, wallet, p.WalletAddress)
	assert.Equal(t, "wanderer", p.Username)
	assert.Empty(t, p.Characters)
	require.NotNil(t, p.LastLogin)

	c, err := e.client.CreateCharacter(ctx, p.ID, " Aria ", "Mage")
	require.NoError(t, err)
	assert.Equal(t, "Aria", c.Name)
	assert.Equal(t, string(character.ClassMage), c.Class)
	assert.Equal(t, e.f.Tavern.ID, c.LocationID, "new characters start at the first location of the starting town")
	assert.Equal(t, e.f.Ravenmoor.ID, c.TownID)
	assert.Equal(t, int64(character.StartingCurrency), c.Currency)
	assert.Equal(t, character.StartingHealth, c.Health)

	again, err := e.client.ResolvePlayer(ctx, wallet, "")
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)
	require.Len(t, again.Characters, 1)
	assert.Equal(t, c.ID, again.Characters[0].ID)

	_, err = e.client.CreateCharacter(ctx, p.ID, "ARIA", "")
	requireCode(t, err, codes.AlreadyExists)
}

func TestResolvePlayer_InvalidInput(t *testing.T) {
	e := newEnv(t)
	ctx := ctxT(t)

	_, err := e.client.ResolvePlayer(ctx, "not-a-wallet", "")
	requireCode(t, err, codes.InvalidArgument)

	_, err = e.client.ResolvePlayer(ctx, testutil.RandomWallet(t), strings.Repeat("x", 33))
	requireCode(t, err, codes.InvalidArgument)
}

func TestCreateCharacter_InvalidInput(t *testing.T) {
	e := newEnv(t)
	ctx := ctxT(t)
	p, err := e.client.ResolvePlayer(ctx, testutil.RandomWallet(t), "")
	require.NoError(t, err)

	_, err = e.client.CreateCharacter(ctx, uuid.New(), "Nobody", "")
	requireCode(t, err, codes.NotFound)

	_, err = e.client.CreateCharacter(ctx, p.ID, "x", "")
	requireCode(t, err, codes.InvalidArgument)

	_, err = e.client.CreateCharacter(ctx, p.ID, "Valid Name", "necromancer")
	requireCode(t, err, codes.InvalidArgument)

	_, err = e.client.CreateCharacter(ctx, uuid.Nil, "Valid Name", "")
	requireCode(t, err, codes.InvalidArgument)
}

func TestExecuteAction(t *testing.T) {
	e := newEnv(t)
	ctx := ctxT(t)
	c := testutil.NewCharacter(t, e.store, e.f.Tavern, nil)

	res, err := e.client.ExecuteAction(ctx, c.ID, e.f.Rest.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, res.CharacterID)
	assert.Equal(t, int64(85), res.Character.Currency)
	assert.Equal(t, e.f.Ravenmoor.ID, res.Character.TownID)
	require.NotNil(t, res.CooldownUntil)
	assert.Equal(t, res.ExecutedAt.Add(60*time.Second), *res.CooldownUntil)
	assert.Equal(t, res.ExecutedAt.Add(30*time.Second), res.CompletesAt)

	_, err = e.client.ExecuteAction(ctx, c.ID, e.f.Rest.ID)
	requireCode(t, err, codes.FailedPrecondition)
	reason, ok := gameserver.IneligibleReason(err)
	require.True(t, ok)
	assert.Equal(t, action.ReasonOnCooldown, reason)

	view, err := e.client.GetCharacter(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(85), view.Currency)
	assert.Equal(t, int64(1), view.Version)
}

func TestExecuteAction_TeleportAndItems(t *testing.T) {
	e := newEnv(t)
	ctx := ctxT(t)
	c := testutil.NewCharacter(t, e.store, e.f.Square, nil)

	res, err := e.client.ExecuteAction(ctx, c.ID, e.f.Sail.ID)
	require.NoError(t, err)
	assert.Equal(t, e.f.Dock.ID, res.Character.LocationID)
	assert.Equal(t, e.f.Dunmere.ID, res.Character.TownID)

	h := testutil.NewCharacter(t, e.store, e.f.Tavern, nil)
	require.NoError(t, e.store.InTx(ctx, func(ctx context.Context, tx action.Tx) error {
		return tx.InsertInventoryLine(ctx, h.ID, character.InventoryLine{ItemID: e.f.Herb.ID, Quantity: 5})
	}))
	res, err = e.client.ExecuteAction(ctx, h.ID, e.f.Brew.ID)
	require.NoError(t, err)
	assert.Equal(t, []action.ItemGrant{{ItemID: e.f.Ore.ID, Quantity: 3}}, res.Outcome.Items)

	view, err := e.client.GetCharacter(ctx, h.ID)
	require.NoError(t, err)
	held := map[uuid.UUID]int{}
	for _, l := range view.Inventory {
		held[l.ItemID] += l.Quantity
	}
	assert.Equal(t, map[uuid.UUID]int{e.f.Herb.ID: 3, e.f.Ore.ID: 3}, held)
}

func TestExecuteAction_Errors(t *testing.T) {
	e := newEnv(t)
	ctx := ctxT(t)
	c := testutil.NewCharacter(t, e.store, e.f.Tavern, nil)

	_, err := e.client.ExecuteAction(ctx, uuid.New(), e.f.Rest.ID)
	requireCode(t, err, codes.NotFound)

	_, err = e.client.ExecuteAction(ctx, c.ID, e.f.Closed.ID)
	requireCode(t, err, codes.NotFound)

	_, err = e.client.ExecuteAction(ctx, c.ID, e.f.Trial.ID)
	reason, ok := gameserver.IneligibleReason(err)
	require.True(t, ok)
	assert.Equal(t, action.ReasonInsufficientLevel, reason)

	_, err = e.client.ExecuteAction(ctx, uuid.Nil, e.f.Rest.ID)
	requireCode(t, err, codes.InvalidArgument)

	in, err := structpb.NewStruct(map[string]any{"character_id": "zzz", "action_id": e.f.Rest.ID.String()})
	require.NoError(t, err)
	err = e.conn.Invoke(ctx, gameserver.MethodExecuteAction, in, new(structpb.Struct))
	requireCode(t, err, codes.InvalidArgument)
}

func TestGetAvailableActions(t *testing.T) {
	e := newEnv(t)
	ctx := ctxT(t)
	c := testutil.NewCharacter(t, e.store, e.f.Tavern, nil)

	view, err := e.client.GetAvailableActions(ctx, c.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, e.f.Tavern.ID, view.LocationID)
	var names []string
	for _, a := range view.Actions {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"Rest", "Heal", "Quest", "Brew"}, names)
	assert.Equal(t, int64(25), view.Actions[0].RequiredCurrency)
	assert.Equal(t, 60, view.Actions[0].CooldownSeconds)

	_, err = e.client.ExecuteAction(ctx, c.ID, e.f.Rest.ID)
	require.NoError(t, err)
	view, err = e.client.GetAvailableActions(ctx, c.ID, nil)
	require.NoError(t, err)
	assert.Len(t, view.Actions, 3, "rest is on cooldown")

	square := e.f.Square.ID
	view, err = e.client.GetAvailableActions(ctx, c.ID, &square)
	require.NoError(t, err)
	require.Len(t, view.Actions, 1)
	assert.Equal(t, "Sail", view.Actions[0].Name)

	missing := uuid.New()
	_, err = e.client.GetAvailableActions(ctx, c.ID, &missing)
	requireCode(t, err, codes.NotFound)
}

func TestIneligibleReason_IgnoresOtherErrors(t *testing.T) {
	_, ok := gameserver.IneligibleReason(status.Error(codes.FailedPrecondition, "plain"))
	assert.False(t, ok)
	_, ok = gameserver.IneligibleReason(status.Error(codes.NotFound, "missing"))
	assert.False(t, ok)
}
