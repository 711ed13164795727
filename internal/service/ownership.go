package service

import (
	"context"
	"errors"

	"github.com/sparkapp/spark-server/internal/domain"
	"github.com/sparkapp/spark-server/internal/store"
)

// verifyResourceOwner reports whether ref's backing row exists and
// belongs to ref.OwnerID. Absent rows and rows owned by another user
// both answer false, so callers cannot probe for other users' data.
func verifyResourceOwner(ctx context.Context, st store.Store, ref domain.ResourceRef) (bool, error) {
	owner, err := st.GetResourceOwner(ctx, ref.Kind, ref.ID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return owner == ref.OwnerID, nil
}

// mustVerifyResourceOwner turns a false ownership answer into
// store.ErrNotFound for mutating paths.
func mustVerifyResourceOwner(ctx context.Context, st store.Store, ref domain.ResourceRef) error {
	ok, err := verifyResourceOwner(ctx, st, ref)
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrNotFound.WithMessage(string(ref.Kind) + " " + ref.ID + " not found")
	}
	return nil
}
