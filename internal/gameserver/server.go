// Package gameserver exposes the action resolution engine and player
// bootstrap operations over gRPC.
package gameserver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/wayfarer/internal/game/action"
	"github.com/cory-johannsen/wayfarer/internal/game/character"
	"github.com/cory-johannsen/wayfarer/internal/game/player"
	"github.com/cory-johannsen/wayfarer/internal/game/world"
)

// maxUsernameLength bounds ResolvePlayer usernames.
const maxUsernameLength = 32

// Engine executes actions and lists the actions a character may start.
type Engine interface {
	ExecuteAction(ctx context.Context, characterID, actionID uuid.UUID) (*action.ExecutionResult, error)
	GetAvailableActions(ctx context.Context, locationID, characterID uuid.UUID, level int, now time.Time) ([]*world.Action, error)
}

// Directory persists players and characters.
type Directory interface {
	ResolvePlayer(ctx context.Context, wallet, username string, now time.Time) (*player.Player, error)
	GetPlayer(ctx context.Context, id uuid.UUID) (*player.Player, error)
	CreateCharacter(ctx context.Context, c *character.Character) error
	NameTaken(ctx context.Context, name string) (bool, error)
	GetCharacter(ctx context.Context, id uuid.UUID) (*character.Character, error)
	ListCharacters(ctx context.Context, playerID uuid.UUID) ([]*character.Character, error)
	Inventory(ctx context.Context, characterID uuid.UUID) ([]character.InventoryLine, error)
}

// Catalog resolves locations and the start location for new characters.
type Catalog interface {
	Location(id uuid.UUID) (*world.Location, bool)
	StartLocation() (*world.Location, error)
}

// ActionServer implements ActionServiceServer.
type ActionServer struct {
	engine  Engine
	dir     Directory
	catalog Catalog
	now     func() time.Time
	logger  *zap.Logger
}

// NewActionServer creates an ActionServer.
//
// Precondition: all arguments must be non-nil.
func NewActionServer(engine Engine, dir Directory, catalog Catalog, logger *zap.Logger) *ActionServer {
	return &ActionServer{
		engine:  engine,
		dir:     dir,
		catalog: catalog,
		now:     time.Now,
		logger:  logger,
	}
}

var _ ActionServiceServer = (*ActionServer)(nil)

// ExecuteAction executes an action for a character and returns the
// action.ExecutionResult.
func (s *ActionServer) ExecuteAction(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ExecuteActionRequest
	if err := DecodeStruct(in, &req); err != nil {
		return nil, invalidArgument(err.Error())
	}
	if req.CharacterID == uuid.Nil || req.ActionID == uuid.Nil {
		return nil, invalidArgument("character_id and action_id are required")
	}
	res, err := s.engine.ExecuteAction(ctx, req.CharacterID, req.ActionID)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.encode(res)
}

// GetAvailableActions lists the actions the character may start at a
// location, using the character's stored level.
func (s *ActionServer) GetAvailableActions(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req AvailableActionsRequest
	if err := DecodeStruct(in, &req); err != nil {
		return nil, invalidArgument(err.Error())
	}
	if req.CharacterID == uuid.Nil {
		return nil, invalidArgument("character_id is required")
	}
	c, err := s.dir.GetCharacter(ctx, req.CharacterID)
	if err != nil {
		return nil, toStatus(err)
	}
	locationID := c.LocationID
	if req.LocationID != nil {
		locationID = *req.LocationID
	}
	actions, err := s.engine.GetAvailableActions(ctx, locationID, c.ID, c.Level, s.now())
	if err != nil {
		return nil, toStatus(err)
	}
	view := AvailableActionsView{LocationID: locationID, Actions: make([]ActionView, 0, len(actions))}
	for _, a := range actions {
		view.Actions = append(view.Actions, newActionView(a))
	}
	return s.encode(view)
}

// ResolvePlayer returns the player for a wallet address, creating it on
// first sight, together with its characters.
func (s *ActionServer) ResolvePlayer(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ResolvePlayerRequest
	if err := DecodeStruct(in, &req); err != nil {
		return nil, invalidArgument(err.Error())
	}
	wallet := strings.TrimSpace(req.WalletAddress)
	if err := player.ValidateAddress(wallet); err != nil {
		return nil, toStatus(err)
	}
	username := strings.TrimSpace(req.Username)
	if len(username) > maxUsernameLength {
		return nil, invalidArgument(fmt.Sprintf("username longer than %d bytes", maxUsernameLength))
	}

	p, err := s.dir.ResolvePlayer(ctx, wallet, username, s.now())
	if err != nil {
		return nil, toStatus(err)
	}
	chars, err := s.dir.ListCharacters(ctx, p.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	views := make([]CharacterView, 0, len(chars))
	for _, c := range chars {
		views = append(views, newCharacterView(c, s.townOf(c), nil))
	}
	s.logger.Info("player resolved",
		zap.Stringer("player_id", p.ID),
		zap.Int("characters", len(views)),
	)
	return s.encode(newPlayerView(p, views))
}

// CreateCharacter creates a character with the starting values at the start
// location.
func (s *ActionServer) CreateCharacter(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req CreateCharacterRequest
	if err := DecodeStruct(in, &req); err != nil {
		return nil, invalidArgument(err.Error())
	}
	if req.PlayerID == uuid.Nil {
		return nil, invalidArgument("player_id is required")
	}
	if _, err := s.dir.GetPlayer(ctx, req.PlayerID); err != nil {
		return nil, toStatus(err)
	}
	start, err := s.catalog.StartLocation()
	if err != nil {
		return nil, toStatus(fmt.Errorf("choosing start location: %w", err))
	}
	c, err := character.New(req.PlayerID, req.Name, character.Class(strings.ToLower(req.Class)), start.ID, s.now())
	if err != nil {
		return nil, invalidArgument(err.Error())
	}
	taken, err := s.dir.NameTaken(ctx, c.Name)
	if err != nil {
		return nil, toStatus(err)
	}
	if taken {
		return nil, toStatus(character.ErrNameTaken)
	}
	if err := s.dir.CreateCharacter(ctx, c); err != nil {
		return nil, toStatus(err)
	}
	s.logger.Info("character created",
		zap.Stringer("player_id", c.PlayerID),
		zap.Stringer("character_id", c.ID),
		zap.String("name", c.Name),
		zap.Stringer("location_id", c.LocationID),
	)
	return s.encode(newCharacterView(c, start.TownID, nil))
}

// GetCharacter returns a character with its inventory.
func (s *ActionServer) GetCharacter(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req GetCharacterRequest
	if err := DecodeStruct(in, &req); err != nil {
		return nil, invalidArgument(err.Error())
	}
	if req.CharacterID == uuid.Nil {
		return nil, invalidArgument("character_id is required")
	}
	c, err := s.dir.GetCharacter(ctx, req.CharacterID)
	if err != nil {
		return nil, toStatus(err)
	}
	inv, err := s.dir.Inventory(ctx, c.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.encode(newCharacterView(c, s.townOf(c), inv))
}

// townOf returns the town of the character's location, or uuid.Nil when the
// location left the catalog.
func (s *ActionServer) townOf(c *character.Character) uuid.UUID {
	if loc, ok := s.catalog.Location(c.LocationID); ok {
		return loc.TownID
	}
	return uuid.Nil
}

func (s *ActionServer) encode(v any) (*structpb.Struct, error) {
	out, err := EncodeStruct(v)
	if err != nil {
		s.logger.Error("encoding response", zap.Error(err))
		return nil, toStatus(errors.New("encoding response"))
	}
	return out, nil
}
