package gameserver

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/wayfarer/internal/game/action"
)

// ActionServiceClient is a typed client for ActionService. Errors are gRPC
// status errors; use IneligibleReason to recover an ineligibility reason.
type ActionServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewActionServiceClient creates a client over cc.
func NewActionServiceClient(cc grpc.ClientConnInterface) *ActionServiceClient {
	return &ActionServiceClient{cc: cc}
}

func (c *ActionServiceClient) call(ctx context.Context, method string, req, resp any, opts ...grpc.CallOption) error {
	in, err := EncodeStruct(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return err
	}
	return DecodeStruct(out, resp)
}

// ExecuteAction executes actionID for characterID.
func (c *ActionServiceClient) ExecuteAction(ctx context.Context, characterID, actionID uuid.UUID, opts ...grpc.CallOption) (*action.ExecutionResult, error) {
	var res action.ExecutionResult
	err := c.call(ctx, MethodExecuteAction, ExecuteActionRequest{CharacterID: characterID, ActionID: actionID}, &res, opts...)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// GetAvailableActions lists the actions characterID may start. A nil
// locationID means the character's current location.
func (c *ActionServiceClient) GetAvailableActions(ctx context.Context, characterID uuid.UUID, locationID *uuid.UUID, opts ...grpc.CallOption) (*AvailableActionsView, error) {
	var view AvailableActionsView
	err := c.call(ctx, MethodGetAvailableActions, AvailableActionsRequest{CharacterID: characterID, LocationID: locationID}, &view, opts...)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// ResolvePlayer resolves or creates the player owning wallet.
func (c *ActionServiceClient) ResolvePlayer(ctx context.Context, wallet, username string, opts ...grpc.CallOption) (*PlayerView, error) {
	var view PlayerView
	err := c.call(ctx, MethodResolvePlayer, ResolvePlayerRequest{WalletAddress: wallet, Username: username}, &view, opts...)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// CreateCharacter creates a character for playerID.
func (c *ActionServiceClient) CreateCharacter(ctx context.Context, playerID uuid.UUID, name, class string, opts ...grpc.CallOption) (*CharacterView, error) {
	var view CharacterView
	err := c.call(ctx, MethodCreateCharacter, CreateCharacterRequest{PlayerID: playerID, Name: name, Class: class}, &view, opts...)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// GetCharacter fetches a character with its inventory.
func (c *ActionServiceClient) GetCharacter(ctx context.Context, characterID uuid.UUID, opts ...grpc.CallOption) (*CharacterView, error) {
	var view CharacterView
	err := c.call(ctx, MethodGetCharacter, GetCharacterRequest{CharacterID: characterID}, &view, opts...)
	if err != nil {
		return nil, err
	}
	return &view, nil
}
