package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Resolver turns a code supplied at checkout into a usable coupon.
type Resolver interface {
	Resolve(ctx context.Context, code string) (*Coupon, error)
}

// RepoResolver implements Resolver by looking coupons up in a Repository and
// rejecting expired ones.
type RepoResolver struct {
	repo Repository
	now  func() time.Time
}

var _ Resolver = (*RepoResolver)(nil)

// NewRepoResolver creates a RepoResolver backed by the given Repository.
func NewRepoResolver(repo Repository) *RepoResolver {
	return &RepoResolver{repo: repo, now: time.Now}
}

// Resolve normalizes code, loads the coupon and checks it has not expired.
// Unknown codes yield ErrNotFound, expired ones ErrExpired; both satisfy
// errors.Is(err, apperr.ErrNotFound).
func (r *RepoResolver) Resolve(ctx context.Context, code string) (*Coupon, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrNotFound
	}

	c, err := r.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errors.Wrap(ErrNotFound, code)
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if c.Expired(r.now()) {
		return nil, errors.Wrap(ErrExpired, code)
	}
	return c, nil
}
