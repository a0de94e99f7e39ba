package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/parcella/internal/authcontext"
	"github.com/smallbiznis/parcella/internal/catalog/domain"
	"github.com/smallbiznis/parcella/internal/clock"
	"github.com/smallbiznis/parcella/internal/fiscal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxDurationMinutes = 8 * 60

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	clock clock.Clock
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.System()
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("catalog.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: clk,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateItemRequest) (domain.Item, error) {
	ownerID, ok := authcontext.UserIDFromContext(ctx)
	if !ok {
		return domain.Item{}, domain.ErrInvalidOwner
	}

	item := domain.Item{OwnerID: ownerID, Active: true}
	if err := applyFields(&item, req); err != nil {
		return domain.Item{}, err
	}

	now := s.clock.Now()
	item.ID = s.genID.Generate()
	item.CreatedAt = now
	item.UpdatedAt = now

	if err := s.repo.Insert(ctx, s.db, &item); err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Item, error) {
	ownerID, ok := authcontext.UserIDFromContext(ctx)
	if !ok {
		return domain.Item{}, domain.ErrInvalidOwner
	}
	itemID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || itemID == 0 {
		return domain.Item{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, ownerID, itemID)
	if err != nil {
		return domain.Item{}, err
	}
	if item == nil {
		return domain.Item{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, includeInactive bool) ([]domain.Item, error) {
	ownerID, ok := authcontext.UserIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOwner
	}

	items, err := s.repo.List(ctx, s.db, ownerID, includeInactive)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateItemRequest) (domain.Item, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return domain.Item{}, err
	}
	if err := applyFields(&item, req); err != nil {
		return domain.Item{}, err
	}

	item.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, &item); err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

// Deactivate hides an item from new invoices. Issued invoices keep their own copy of the price.
func (s *Service) Deactivate(ctx context.Context, id string) (domain.Item, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return domain.Item{}, err
	}
	if !item.Active {
		return item, nil
	}

	item.Active = false
	item.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, &item); err != nil {
		return domain.Item{}, err
	}
	s.log.Info("catalog item deactivated", zap.String("item_id", item.ID.String()))
	return item, nil
}

func applyFields(item *domain.Item, req domain.CreateItemRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.ErrInvalidName
	}

	price, err := decimal.NewFromString(strings.TrimSpace(req.Price))
	if err != nil || !fiscal.ValidAmount(price) {
		return domain.ErrInvalidPrice
	}
	if req.DurationMinutes < 0 || req.DurationMinutes > maxDurationMinutes {
		return domain.ErrInvalidDuration
	}

	item.Name = name
	item.Description = strings.TrimSpace(req.Description)
	item.Price = price
	item.DurationMinutes = req.DurationMinutes
	return nil
}
