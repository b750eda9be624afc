package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/admin-api/internal/models"
	"github.com/noah-isme/admin-api/internal/registry"
	appErrors "github.com/noah-isme/admin-api/pkg/errors"
)

type recordingInvalidator struct {
	patterns []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, patterns ...string) error {
	r.patterns = append(r.patterns, patterns...)
	return nil
}

type memoryFiles struct {
	saved map[string]string
}

func (m *memoryFiles) Save(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if m.saved == nil {
		m.saved = map[string]string{}
	}
	m.saved[key] = string(body)
	return key, nil
}

func (m *memoryFiles) URL(_ context.Context, key string) (string, error) {
	return "https://files.example.com/" + key, nil
}

type recordFixture struct {
	reg     *registry.Registry
	store   *fakeRecordStore
	service *RecordService
	cache   *recordingInvalidator
	now     time.Time
}

func newRecordFixture(t *testing.T) *recordFixture {
	t.Helper()
	reg := newDemoRegistry()
	store := newFakeRecordStore()
	seedTypes(t, reg, store)
	classifications, _ := reg.Model("demo.classification")
	store.seed(classifications, models.Record{"id": int64(1), "name": "Small"}, models.Record{"id": int64(2), "name": "Large"})
	db, _ := newTxDB(t)
	cache := &recordingInvalidator{}
	svc := NewRecordService(db, reg, store, nil, cache, nil)
	fixed := time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	return &recordFixture{reg: reg, store: store, service: svc, cache: cache, now: fixed}
}

// expectTx swaps in a fresh database expecting one committed transaction.
func expectTx(t *testing.T, f *recordFixture) sqlmock.Sqlmock {
	t.Helper()
	db, mock := newTxDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	f.service.db = db
	return mock
}

func TestRecordServiceCreate(t *testing.T) {
	f := newRecordFixture(t)
	mock := expectTx(t, f)

	payload := validDemoPayload()
	payload["classification"] = "1,2"
	result, err := f.service.Create(context.Background(), "demo.demomodel", payload)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.PK)
	assert.Equal(t, "Created record [Widget] with pk 1 successfully", result.Message)
	assert.Equal(t, int64(1), result.Record["pk"])
	assert.Equal(t, "2024-03-09", result.Record["date"])

	schema, _ := f.reg.Model("demo.demomodel")
	stored, err := f.store.Get(context.Background(), schema, int64(1))
	require.NoError(t, err)
	assert.Regexp(t, `^demo_[0-9a-f-]{36}$`, stored["uid"])
	assert.Equal(t, true, stored["is_active"])
	assert.Equal(t, f.now, stored["created_at"])
	assert.Equal(t, f.now, stored["updated_at"])
	assert.Equal(t, int64(1), stored["type"])

	m2m, _ := schema.Field("classification")
	ids, _ := f.store.RelatedIDs(context.Background(), m2m, int64(1))
	assert.Equal(t, []interface{}{int64(1), int64(2)}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordServiceCreateReportsFieldErrors(t *testing.T) {
	f := newRecordFixture(t)
	payload := validDemoPayload()
	payload["type"] = float64(99)
	payload["classification"] = []interface{}{float64(1), float64(42)}
	payload["comment"] = true

	_, err := f.service.Create(context.Background(), "demo.demomodel", payload)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, []string{`Invalid pk "99" - object does not exist.`}, appErr.Fields["type"])
	assert.Equal(t, []string{"One or more related objects do not exist."}, appErr.Fields["classification"])
	assert.Equal(t, []string{MsgInvalidString}, appErr.Fields["comment"])
	assert.Empty(t, f.store.inserted)
}

func TestRecordServiceRejectsDuplicateUniqueValues(t *testing.T) {
	f := newRecordFixture(t)
	schema, _ := f.reg.Model("demo.demomodel")
	f.store.seed(schema, demoRecord())

	_, err := f.service.Create(context.Background(), "demo.demomodel", validDemoPayload())
	require.Error(t, err)
	assert.Equal(t, []string{"DemoModel with this name already exists."}, appErrors.FromError(err).Fields["name"])
}

func TestRecordServiceUpdate(t *testing.T) {
	f := newRecordFixture(t)
	schema, _ := f.reg.Model("demo.demomodel")
	f.store.seed(schema, demoRecord())
	schema.CacheKey = "DemoModelList"
	mock := expectTx(t, f)

	payload := validDemoPayload()
	payload["name"] = "Widget"
	payload["color"] = "Blue"
	result, err := f.service.Update(context.Background(), "demo.demomodel", "7", payload)
	require.NoError(t, err)
	assert.Equal(t, "Updated record [Widget] with pk 7 successfully", result.Message)

	stored, _ := f.store.Get(context.Background(), schema, int64(7))
	assert.Equal(t, "Blue", stored["color"])
	assert.Equal(t, "demo_abc", stored["uid"])
	assert.Equal(t, f.now, stored["updated_at"])
	assert.Equal(t, []string{"DemoModelList"}, f.cache.patterns)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordServiceUpdateRejectsMissingRelationsWithoutWriting(t *testing.T) {
	f := newRecordFixture(t)
	schema, _ := f.reg.Model("demo.demomodel")
	f.store.seed(schema, demoRecord())
	m2m, _ := schema.Field("classification")
	f.store.relate(m2m, int64(7), int64(2))
	db, mock := newTxDB(t)
	f.service.db = db

	payload := validDemoPayload()
	payload["name"] = "Renamed"
	payload["type"] = float64(99)
	payload["classification"] = []interface{}{float64(1), float64(42)}
	_, err := f.service.Update(context.Background(), "demo.demomodel", "7", payload)
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, []string{`Invalid pk "99" - object does not exist.`}, appErr.Fields["type"])
	assert.Equal(t, []string{"One or more related objects do not exist."}, appErr.Fields["classification"])
	assert.Empty(t, f.store.inserted)
	assert.Empty(t, f.cache.patterns)

	stored, err := f.store.Get(context.Background(), schema, int64(7))
	require.NoError(t, err)
	assert.Equal(t, demoRecord(), stored)
	ids, _ := f.store.RelatedIDs(context.Background(), m2m, int64(7))
	assert.Equal(t, []interface{}{int64(2)}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordServiceUpdateHashesPasswordOnlyWhenProvided(t *testing.T) {
	f := newRecordFixture(t)
	users, _ := f.reg.Model("users.user")
	f.store.seed(users, models.Record{"id": "user_1", "email": "a@example.com", "password": "old-hash", "is_active": true})

	expectTx(t, f)
	_, err := f.service.Update(context.Background(), "users.user", "user_1", map[string]interface{}{"email": "a@example.com", "password": ""})
	require.NoError(t, err)
	stored, _ := f.store.Get(context.Background(), users, "user_1")
	assert.Equal(t, "old-hash", stored["password"])

	expectTx(t, f)
	result, err := f.service.Update(context.Background(), "users.user", "user_1", map[string]interface{}{"email": "a@example.com", "password": "s3cretpass"})
	require.NoError(t, err)
	assert.NotContains(t, result.Record, "password")
	stored, _ = f.store.Get(context.Background(), users, "user_1")
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored["password"].(string)), []byte("s3cretpass")))
}

func TestRecordServiceCreateGeneratesUserIdentifier(t *testing.T) {
	f := newRecordFixture(t)
	expectTx(t, f)

	result, err := f.service.Create(context.Background(), "users.user", map[string]interface{}{"email": "new@example.com", "password": "passw0rd!"})
	require.NoError(t, err)
	assert.Regexp(t, `^user_[0-9a-f-]{36}$`, result.PK)
	assert.Equal(t, false, result.Record["is_staff"])
}

func TestRecordServiceList(t *testing.T) {
	f := newRecordFixture(t)
	f.service.files = &memoryFiles{}
	schema, _ := f.reg.Model("demo.demomodel")
	for i := 1; i <= 7; i++ {
		rec := demoRecord()
		rec["id"] = int64(i)
		rec["is_active"] = i%2 == 0
		f.store.seed(schema, rec)
	}

	page, err := f.service.List(context.Background(), "demo.demomodel", models.ListParams{})
	require.NoError(t, err)
	assert.Len(t, page.Records, 5)
	assert.Equal(t, 7, page.Pagination.TotalCount)
	require.NotNil(t, page.Pagination.Next)
	assert.Equal(t, 5, *page.Pagination.Next)
	assert.Equal(t, "https://files.example.com/docs/report.pdf", page.Records[0]["file"])
	assert.Nil(t, page.Records[0]["image"])
	assert.NotContains(t, page.Records[0], "classification")

	filtered, err := f.service.List(context.Background(), "demo.demomodel", models.ListParams{
		Filters: map[string][]interface{}{"is_active": {true}},
		Limit:   10,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, filtered.Pagination.TotalCount)

	_, err = f.service.List(context.Background(), "demo.demomodel", models.ListParams{Filters: map[string][]interface{}{"classification": {1}}})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func mustModel(t *testing.T, reg *registry.Registry, id string) *models.ModelSchema {
	t.Helper()
	schema, err := reg.Model(id)
	require.NoError(t, err)
	return schema
}

func TestListPredicateSearchesConfiguredFields(t *testing.T) {
	reg := newDemoRegistry()
	schema := mustModel(t, reg, "demo.demomodel")
	admin, _ := reg.Admin("demo.demomodel")

	pred, err := listPredicate(schema, admin, models.ListParams{Search: " wid "})
	require.NoError(t, err)
	sql, args, err := pred.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "((name::text ILIKE ? OR email::text ILIKE ?))", sql)
	assert.Equal(t, []interface{}{"%wid%", "%wid%"}, args)

	pred, err = listPredicate(schema, admin, models.ListParams{})
	require.NoError(t, err)
	assert.Nil(t, pred)
}

func TestRecordServiceGetAndDelete(t *testing.T) {
	f := newRecordFixture(t)
	schema, _ := f.reg.Model("demo.demomodel")
	f.store.seed(schema, demoRecord())
	m2m, _ := schema.Field("classification")
	f.store.relate(m2m, int64(7), int64(2))

	rec, err := f.service.Get(context.Background(), "demo.demomodel", "7")
	require.NoError(t, err)
	assert.Equal(t, int64(7), rec["pk"])
	assert.Equal(t, []interface{}{int64(2)}, rec["classification"])
	assert.Equal(t, "14:05:09", rec["time"])

	_, err = f.service.Get(context.Background(), "demo.demomodel", "8")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	expectTx(t, f)
	result, err := f.service.Delete(context.Background(), "demo.demomodel", "7")
	require.NoError(t, err)
	assert.Equal(t, "Deleted record [Widget] with pk 7 successfully", result.Message)
	assert.Empty(t, f.store.rows["demo.demomodel"])
}

func TestRecordServiceDeleteMany(t *testing.T) {
	f := newRecordFixture(t)
	expectTx(t, f)
	n, err := f.service.DeleteMany(context.Background(), "demo.type", []interface{}{float64(1), "3", float64(99)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Len(t, f.store.rows["demo.type"], 1)

	_, err = f.service.DeleteMany(context.Background(), "demo.type", []interface{}{"abc"})
	require.Error(t, err)
	assert.Equal(t, "Invalid payload", appErrors.FromError(err).Message)
}

func TestRecordServiceInline(t *testing.T) {
	f := newRecordFixture(t)
	schema, _ := f.reg.Model("demo.demomodel")
	parent := demoRecord()
	inactive := demoRecord()
	inactive["id"] = int64(8)
	inactive["is_active"] = false
	f.store.seed(schema, parent, inactive)
	profiles, _ := f.reg.Model("demo.countryprofile")
	f.store.seed(profiles,
		models.Record{"id": int64(1), "country": int64(1), "level": int64(1), "type": int64(2), "area": int64(10)},
		models.Record{"id": int64(2), "country": int64(2), "level": int64(1), "type": int64(3), "area": int64(20)},
	)

	list, err := f.service.Inline(context.Background(), "demo.demomodel", "7", "countryprofile", 0, 0)
	require.NoError(t, err)
	require.Len(t, list.Records, 1)
	assert.Equal(t, int64(1), list.Records[0]["pk"])
	assert.Equal(t, 5, list.Pagination.Limit)

	list, err = f.service.Inline(context.Background(), "demo.demomodel", "7", "inactive", 0, 0)
	require.NoError(t, err)
	require.Len(t, list.Records, 1)
	assert.Equal(t, int64(8), list.Records[0]["pk"])

	_, err = f.service.Inline(context.Background(), "demo.demomodel", "7", "missing", 0, 0)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestRecordServiceStoreUpload(t *testing.T) {
	f := newRecordFixture(t)
	files := &memoryFiles{}
	f.service.files = files

	key, err := f.service.StoreUpload(context.Background(), "demo.demomodel", "image", "photo.png", 1024, "image/png", strings.NewReader("png"))
	require.NoError(t, err)
	assert.Regexp(t, `^demo/demomodel/image/[0-9a-f-]{36}\.png$`, key)
	assert.Equal(t, "png", files.saved[key])

	_, err = f.service.StoreUpload(context.Background(), "demo.demomodel", "image", "notes.txt", 3*1024*1024, "text/plain", strings.NewReader("x"))
	require.Error(t, err)
	assert.Equal(t, []string{MsgInvalidFileType, MsgInvalidFileSize}, appErrors.FromError(err).Fields["image"])

	_, err = f.service.StoreUpload(context.Background(), "demo.demomodel", "name", "a.png", 1, "image/png", strings.NewReader("x"))
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
