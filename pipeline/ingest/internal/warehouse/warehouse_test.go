package warehouse

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"database/sql"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/golang-sql/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Log-Tools/lift-tickets-pipeline/pipeline/ingest/internal/ingestion"
	"github.com/Log-Tools/lift-tickets-pipeline/tickets"
)

type fakeExecer struct {
	queries []string
	err     error
	closed  bool
}

func (f *fakeExecer) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	f.queries = append(f.queries, query)
	return nil, f.err
}

func (f *fakeExecer) Close() error {
	f.closed = true
	return nil
}

func TestSnowflakeStatements(t *testing.T) {
	db := &fakeExecer{}
	s := newSnowflake(db, "@%LIFT_TICKETS_PY_SERVERLESS", "LIFT_TICKETS_PY_SERVERLESS")

	require.NoError(t, s.Put(context.Background(), "/tmp/run/abc.parquet"))
	require.NoError(t, s.ExecuteTask(context.Background()))
	require.NoError(t, s.Close())

	assert.Equal(t, []string{
		"PUT 'file:///tmp/run/abc.parquet' @%LIFT_TICKETS_PY_SERVERLESS AUTO_COMPRESS=FALSE OVERWRITE=FALSE",
		"EXECUTE TASK LIFT_TICKETS_PY_SERVERLESS",
	}, db.queries)
	assert.True(t, db.closed)
}

func TestSnowflakeEscapesPath(t *testing.T) {
	db := &fakeExecer{}
	s := newSnowflake(db, "@~", "T")

	require.NoError(t, s.Put(context.Background(), "/tmp/o'brien/x.parquet"))
	assert.Equal(t, "PUT 'file:///tmp/o''brien/x.parquet' @~ AUTO_COMPRESS=FALSE OVERWRITE=FALSE", db.queries[0])
}

func TestSnowflakeErrors(t *testing.T) {
	boom := errors.New("session expired")
	s := newSnowflake(&fakeExecer{err: boom}, "@~", "T")

	err := s.Put(context.Background(), "/tmp/a.parquet")
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "put /tmp/a.parquet to @~")

	err = s.ExecuteTask(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "execute task T")
}

func TestParsePrivateKey(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pkcs8, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	pkcs8PEM := string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8}))
	pkcs1PEM := string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}))

	tests := []struct {
		name string
		raw  string
	}{
		{"pkcs8 pem", pkcs8PEM},
		{"bare base64 body", base64.StdEncoding.EncodeToString(pkcs8)},
		{"pkcs1 pem", pkcs1PEM},
		{"surrounding whitespace", "\n  " + pkcs8PEM + "  \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParsePrivateKey(tt.raw)
			require.NoError(t, err)
			assert.True(t, key.Equal(parsed))
		})
	}
}

func TestParsePrivateKeyInvalid(t *testing.T) {
	_, err := ParsePrivateKey("")
	assert.Error(t, err)

	_, err = ParsePrivateKey("not a key")
	assert.Error(t, err)

	_, err = ParsePrivateKey(base64.StdEncoding.EncodeToString([]byte("garbage bytes")))
	assert.Error(t, err)
}

type fakeUploader struct {
	container string
	blob      string
	content   []byte
	err       error
}

func (f *fakeUploader) UploadFile(ctx context.Context, containerName string, blobName string, file *os.File, o *azblob.UploadFileOptions) (azblob.UploadFileResponse, error) {
	f.container = containerName
	f.blob = blobName
	f.content, _ = io.ReadAll(file)
	return azblob.UploadFileResponse{}, f.err
}

func TestAzureStagePut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abc.parquet")
	require.NoError(t, os.WriteFile(path, []byte("PAR1"), 0o644))

	up := &fakeUploader{}
	stage := newAzureStage(up, "stage", "lift_tickets/incoming")

	require.NoError(t, stage.Put(context.Background(), path))
	assert.Equal(t, "stage", up.container)
	assert.Equal(t, "lift_tickets/incoming/abc.parquet", up.blob)
	assert.Equal(t, []byte("PAR1"), up.content)
}

func TestAzureStageBlobName(t *testing.T) {
	assert.Equal(t, "x.parquet", newAzureStage(nil, "c", "").BlobName("/tmp/run/x.parquet"))
	assert.Equal(t, "p/x.parquet", newAzureStage(nil, "c", "p/").BlobName("/tmp/run/x.parquet"))
}

func TestAzureStagePutErrors(t *testing.T) {
	stage := newAzureStage(&fakeUploader{}, "c", "")
	assert.Error(t, stage.Put(context.Background(), filepath.Join(t.TempDir(), "missing.parquet")))

	path := filepath.Join(t.TempDir(), "abc.parquet")
	require.NoError(t, os.WriteFile(path, []byte("PAR1"), 0o644))
	boom := errors.New("403")
	stage = newAzureStage(&fakeUploader{err: boom}, "c", "")
	assert.ErrorIs(t, stage.Put(context.Background(), path), boom)
}

func TestCompositeRoutesCalls(t *testing.T) {
	up := &fakeUploader{}
	db := &fakeExecer{}
	c := &Composite{Stage: newAzureStage(up, "c", ""), Task: newSnowflake(db, "@EXT_STAGE", "LOAD_TASK")}

	path := filepath.Join(t.TempDir(), "abc.parquet")
	require.NoError(t, os.WriteFile(path, []byte("PAR1"), 0o644))

	require.NoError(t, c.Put(context.Background(), path))
	require.NoError(t, c.ExecuteTask(context.Background()))
	require.NoError(t, c.Close())

	assert.Equal(t, "abc.parquet", up.blob)
	assert.Equal(t, []string{"EXECUTE TASK LOAD_TASK"}, db.queries)
	assert.True(t, db.closed)
}

func stageBatch(t *testing.T, n int) string {
	t.Helper()
	batch := make([]tickets.LiftTicket, n)
	for i := range batch {
		batch[i] = tickets.LiftTicket{
			TransactionID:  "tx",
			DeviceID:       "0x0123456789abcdef01234567",
			Resort:         "Vail",
			PurchaseTime:   time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC),
			ExpirationTime: civil.Date{Year: 2023, Month: time.June, Day: 1},
			Days:           1 + i%7,
			Name:           "Jane Doe",
		}
	}
	path := filepath.Join(t.TempDir(), tickets.NewStagedFileKey().String())
	_, err := ingestion.WriteParquet(path, ingestion.ToRows(batch))
	require.NoError(t, err)
	return path
}

func TestDuckDBLoadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	d, err := OpenDuckDB(ctx, filepath.Join(dir, "wh.duckdb"), filepath.Join(dir, "stage"), "LIFT_TICKETS")
	require.NoError(t, err)
	defer d.Close()

	n, err := d.RowCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, d.ExecuteTask(ctx))

	require.NoError(t, d.Put(ctx, stageBatch(t, 10)))
	require.NoError(t, d.ExecuteTask(ctx))
	n, err = d.RowCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)

	require.NoError(t, d.ExecuteTask(ctx))
	n, err = d.RowCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)

	require.NoError(t, d.Put(ctx, stageBatch(t, 5)))
	require.NoError(t, d.Put(ctx, stageBatch(t, 3)))
	require.NoError(t, d.ExecuteTask(ctx))
	n, err = d.RowCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(18), n)
}

func TestDuckDBIgnoresForeignFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	stageDir := filepath.Join(dir, "stage")
	d, err := OpenDuckDB(ctx, filepath.Join(dir, "wh.duckdb"), stageDir, "LIFT_TICKETS")
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, os.WriteFile(filepath.Join(stageDir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, d.ExecuteTask(ctx))

	n, err := d.RowCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDuckDBPutRefusesOverwrite(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	d, err := OpenDuckDB(ctx, filepath.Join(dir, "wh.duckdb"), filepath.Join(dir, "stage"), "LIFT_TICKETS")
	require.NoError(t, err)
	defer d.Close()

	path := stageBatch(t, 1)
	require.NoError(t, d.Put(ctx, path))
	assert.Error(t, d.Put(ctx, path))
}
