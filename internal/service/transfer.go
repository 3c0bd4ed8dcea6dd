package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/slushbook/internal/model"
	"github.com/and161185/slushbook/internal/policy"
	"github.com/and161185/slushbook/internal/repository"
	"github.com/and161185/slushbook/internal/transfer"
)

// ImportFailure names a record that was not imported.
type ImportFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// ImportResult summarizes an import.
type ImportResult struct {
	Imported int             `json:"imported"`
	Failed   []ImportFailure `json:"failed"`
}

// TransferService moves recipes in and out as transfer documents. Admin only.
type TransferService interface {
	Export(ctx context.Context, c model.Caller, version string) (transfer.Document, error)
	// Import upserts every valid record by id; invalid records are reported, not fatal.
	Import(ctx context.Context, c model.Caller, d transfer.Document) (ImportResult, error)
}

type TransferServiceImpl struct {
	recipes repository.RecipeRepository
	policy  *policy.Policy
	log     *zap.Logger
	now     func() time.Time
}

// NewTransferService constructs TransferService.
func NewTransferService(recipes repository.RecipeRepository, pol *policy.Policy, log *zap.Logger) *TransferServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &TransferServiceImpl{recipes: recipes, policy: pol, log: log, now: time.Now}
}

func (s *TransferServiceImpl) Export(ctx context.Context, c model.Caller, version string) (transfer.Document, error) {
	if err := s.policy.Require(c, policy.ObjTransfer, policy.ActRun); err != nil {
		return transfer.Document{}, err
	}
	return ExportAll(ctx, s.recipes, version, s.now())
}

func (s *TransferServiceImpl) Import(ctx context.Context, c model.Caller, d transfer.Document) (ImportResult, error) {
	if err := s.policy.Require(c, policy.ObjTransfer, policy.ActRun); err != nil {
		return ImportResult{}, err
	}
	res, err := ImportAll(ctx, s.recipes, d)
	if err != nil {
		return res, err
	}
	s.log.Info("import finished",
		zap.String("version", d.Version),
		zap.Int("imported", res.Imported),
		zap.Int("failed", len(res.Failed)),
	)
	return res, nil
}

// ExportAll reads every recipe from the store into a document. It performs no access
// check and is shared with the admin CLI.
func ExportAll(ctx context.Context, recipes repository.RecipeRepository, version string, now time.Time) (transfer.Document, error) {
	rs, err := recipes.List(ctx, repository.RecipeFilter{Scope: repository.ScopeAll})
	if err != nil {
		return transfer.Document{}, fmt.Errorf("list recipes: %w", err)
	}
	return transfer.Export(rs, version, now)
}

// ImportAll upserts each record of d by id. Store errors abort; invalid records are
// collected in the result.
func ImportAll(ctx context.Context, recipes repository.RecipeRepository, d transfer.Document) (ImportResult, error) {
	res := ImportResult{Failed: []ImportFailure{}}
	for _, rec := range d.Recipes {
		r, err := rec.Recipe()
		if err != nil {
			res.Failed = append(res.Failed, ImportFailure{ID: rec.ID, Error: err.Error()})
			continue
		}
		if err := recipes.Upsert(ctx, r); err != nil {
			return res, fmt.Errorf("upsert recipe %s: %w", r.ID, err)
		}
		res.Imported++
	}
	return res, nil
}
