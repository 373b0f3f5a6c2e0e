package candidates

import (
	"context"
	"testing"

	"recruitment_backend/internal/reference"
	"recruitment_backend/platform/apperr"
	"recruitment_backend/platform/db"
	"recruitment_backend/platform/logger"
	"recruitment_backend/platform/validator"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeTransactor struct{}

func (fakeTransactor) WithinTx(ctx context.Context, fn db.TxFunc) error {
	ctx, scope := db.NewCommitScope(ctx)
	if err := fn(ctx, nil); err != nil {
		return err
	}
	scope.Run(ctx)
	return nil
}

type fakeReferences struct {
	next int64
	rows map[reference.Kind]map[string]int64
}

func (f *fakeReferences) Find(_ context.Context, _ db.DBTX, kind reference.Kind, name string) (int64, error) {
	if id, ok := f.rows[kind][name]; ok {
		return id, nil
	}
	return 0, reference.ErrNotFound
}

func (f *fakeReferences) Insert(_ context.Context, _ db.DBTX, kind reference.Kind, name string, _ *int64) (int64, error) {
	if f.rows == nil {
		f.rows = make(map[reference.Kind]map[string]int64)
	}
	if f.rows[kind] == nil {
		f.rows[kind] = make(map[string]int64)
	}
	f.next++
	f.rows[kind][name] = f.next
	return f.next, nil
}

func (f *fakeReferences) Name(_ context.Context, _ db.DBTX, kind reference.Kind, id int64) (string, error) {
	for name, rowID := range f.rows[kind] {
		if rowID == id {
			return name, nil
		}
	}
	return "", reference.ErrNotFound
}

type fakeStore struct {
	refs         *fakeReferences
	candidates   map[uuid.UUID]Candidate
	applications map[uuid.UUID]int
}

func newFakeStore(refs *fakeReferences) *fakeStore {
	return &fakeStore{refs: refs, candidates: make(map[uuid.UUID]Candidate), applications: make(map[uuid.UUID]int)}
}

func (f *fakeStore) Get(_ context.Context, _ db.DBTX, id uuid.UUID) (Candidate, error) {
	c, ok := f.candidates[id]
	if !ok {
		return Candidate{}, ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) Load(ctx context.Context, q db.DBTX, id uuid.UUID) (Record, error) {
	c, err := f.Get(ctx, q, id)
	if err != nil {
		return Record{}, err
	}
	rec := Record{Candidate: c}
	if c.CommuneID != nil {
		rec.Commune, _ = f.refs.Name(ctx, q, reference.KindCommune, *c.CommuneID)
	}
	if c.SectorID != nil {
		rec.Sector, _ = f.refs.Name(ctx, q, reference.KindSector, *c.SectorID)
	}
	return rec, nil
}

func (f *fakeStore) FindIDByEmail(_ context.Context, _ db.DBTX, email string) (uuid.UUID, error) {
	for id, c := range f.candidates {
		if c.Email == email {
			return id, nil
		}
	}
	return uuid.Nil, ErrNotFound
}

func (f *fakeStore) Update(_ context.Context, _ db.DBTX, c Candidate) error {
	if _, ok := f.candidates[c.ID]; !ok {
		return ErrNotFound
	}
	f.candidates[c.ID] = c
	return nil
}

func (f *fakeStore) CountApplications(_ context.Context, _ db.DBTX, id uuid.UUID) (int, error) {
	return f.applications[id], nil
}

func (f *fakeStore) Delete(_ context.Context, _ db.DBTX, id uuid.UUID) (bool, error) {
	if _, ok := f.candidates[id]; !ok {
		return false, nil
	}
	delete(f.candidates, id)
	return true, nil
}

func (f *fakeStore) add(email string) Candidate {
	c := Candidate{ID: uuid.New(), FirstName: "Ana", FirstSurname: "Soto", Email: email, Phone: "+56987654321"}
	f.candidates[c.ID] = c
	return c
}

func newTestService() (*Service, *fakeStore) {
	refs := &fakeReferences{}
	store := newFakeStore(refs)
	resolver := reference.NewResolver(refs, logger.Discard())
	return NewService(store, fakeTransactor{}, nil, resolver, validator.New(), "CL", logger.Discard()), store
}

func strPtr(s string) *string { return &s }

func TestUpdateResolvesReferencesAndNormalizes(t *testing.T) {
	svc, store := newTestService()
	c := store.add("ana@example.com")

	rec, err := svc.Update(context.Background(), c.ID, UpdateInput{
		Email:   strPtr("  ANA.SOTO@Example.com "),
		Phone:   strPtr("9 8765 4321"),
		Commune: strPtr(" Ñuñoa "),
		Sector:  strPtr("Minería"),
	})
	require.NoError(t, err)
	require.Equal(t, "ana.soto@example.com", rec.Email)
	require.Equal(t, "+56987654321", rec.Phone)
	require.Equal(t, "Ñuñoa", rec.Commune)
	require.Equal(t, "Minería", rec.Sector)
}

func TestUpdateRejectsTakenEmail(t *testing.T) {
	svc, store := newTestService()
	c := store.add("ana@example.com")
	store.add("otra@example.com")

	_, err := svc.Update(context.Background(), c.ID, UpdateInput{Email: strPtr("otra@example.com")})
	require.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)
	require.Equal(t, "ana@example.com", store.candidates[c.ID].Email)
}

func TestUpdateValidatesBeforeWriting(t *testing.T) {
	svc, store := newTestService()
	c := store.add("ana@example.com")

	_, err := svc.Update(context.Background(), c.ID, UpdateInput{Email: strPtr("not-an-email"), FirstName: strPtr("  ")})
	require.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	details, ok := appErr.Details.(map[string]string)
	require.True(t, ok)
	require.Equal(t, "email", details["Email"])
	require.Equal(t, "notblank", details["FirstName"])
}

func TestUpdateRejectsRegionWithoutCommune(t *testing.T) {
	svc, store := newTestService()
	c := store.add("ana@example.com")

	_, err := svc.Update(context.Background(), c.ID, UpdateInput{Region: strPtr("Valparaíso"), Sector: strPtr("Minería")})
	require.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, map[string]string{"Commune": "required_with"}, appErr.Details)
	require.Nil(t, store.candidates[c.ID].SectorID)
}

func TestUpdateUnknownCandidate(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Update(context.Background(), uuid.New(), UpdateInput{FirstName: strPtr("Ana")})
	require.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)
}

func TestDeleteIsRefusedWhileApplicationsExist(t *testing.T) {
	svc, store := newTestService()
	c := store.add("ana@example.com")
	store.applications[c.ID] = 2

	err := svc.Delete(context.Background(), c.ID)
	require.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)
	require.Contains(t, store.candidates, c.ID)

	store.applications[c.ID] = 0
	require.NoError(t, svc.Delete(context.Background(), c.ID))
	require.NotContains(t, store.candidates, c.ID)

	err = svc.Delete(context.Background(), c.ID)
	require.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)
}
