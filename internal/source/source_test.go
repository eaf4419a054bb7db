package source

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/traditionalchinese"

	"github.com/garyellow/chatai/internal/r2client"
)

const sampleCSV = "input,response\n" +
	"Hello,Hi there!\n" +
	"\"how are you, bot\",\"Fine, thanks.\"\n" +
	"bye,Goodbye!\n"

func collect(t *testing.T, src Source) []Row {
	t.Helper()
	var rows []Row
	err := src.Scan(context.Background(), func(r Row) error {
		rows = append(rows, r)
		return nil
	})
	require.NoError(t, err)
	return rows
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func wantSampleRows(t *testing.T, rows []Row) {
	t.Helper()
	require.Len(t, rows, 3)
	assert.Equal(t, Row{Position: 1, Input: "Hello", Response: "Hi there!"}, rows[0])
	assert.Equal(t, Row{Position: 2, Input: "how are you, bot", Response: "Fine, thanks."}, rows[1])
	assert.Equal(t, Row{Position: 3, Input: "bye", Response: "Goodbye!"}, rows[2])
}

func TestOpen_PlainCSV(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "chat_data.csv", []byte(sampleCSV))
	src, err := Open(context.Background(), path, Options{})
	require.NoError(t, err)

	assert.Equal(t, path, src.String())
	wantSampleRows(t, collect(t, src))
}

func TestOpen_FileURL(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "chat_data.csv", []byte(sampleCSV))
	src, err := Open(context.Background(), "file://"+path, Options{})
	require.NoError(t, err)

	wantSampleRows(t, collect(t, src))
}

func TestOpen_Compressed(t *testing.T) {
	t.Parallel()

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, err := gw.Write([]byte(sampleCSV))
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	var zst bytes.Buffer
	zw, err := zstd.NewWriter(&zst)
	require.NoError(t, err)
	_, err = zw.Write([]byte(sampleCSV))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	tests := []struct {
		name string
		data []byte
	}{
		{"chat_data.csv.gz", gz.Bytes()},
		{"chat_data.csv.zst", zst.Bytes()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			src, err := Open(context.Background(), writeFile(t, tt.name, tt.data), Options{})
			require.NoError(t, err)
			wantSampleRows(t, collect(t, src))
		})
	}
}

func TestOpen_CorruptCompressedFile(t *testing.T) {
	t.Parallel()

	src, err := Open(context.Background(), writeFile(t, "chat_data.csv.gz", []byte(sampleCSV)), Options{})
	require.NoError(t, err)

	err = src.Scan(context.Background(), func(Row) error { return nil })
	assert.Error(t, err)
}

func TestScan_BOMAndColumnOrder(t *testing.T) {
	t.Parallel()

	data := "\ufeffresponse,notes,input\nHi there!,greeting,hello\n"
	src, err := NewReader("bom.csv", strings.NewReader(data), Options{})
	require.NoError(t, err)

	rows := collect(t, src)
	require.Len(t, rows, 1)
	assert.Equal(t, "hello", rows[0].Input)
	assert.Equal(t, "Hi there!", rows[0].Response)
}

func TestScan_MalformedRows(t *testing.T) {
	t.Parallel()

	data := "input,response\n" +
		"hello,Hi there!\n" +
		"only one field\n" +
		"a,b,c\n" +
		"bye,Goodbye!\n"
	src, err := NewReader("bad.csv", strings.NewReader(data), Options{})
	require.NoError(t, err)

	rows := collect(t, src)
	require.Len(t, rows, 4)

	assert.NoError(t, rows[0].Err)
	assert.Error(t, rows[1].Err)
	assert.Error(t, rows[2].Err)
	assert.Equal(t, 3, rows[2].Position)
	assert.NoError(t, rows[3].Err)
	assert.Equal(t, "bye", rows[3].Input)
}

func TestScan_SourceErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"empty file", "", ErrNoHeader},
		{"missing input column", "question,response\nhi,hello\n", ErrMissingColumn},
		{"missing response column", "input,answer\nhi,hello\n", ErrMissingColumn},
		{"header only matches case-sensitively", "Input,Response\nhi,hello\n", ErrMissingColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			src, err := NewReader("t.csv", strings.NewReader(tt.data), Options{})
			require.NoError(t, err)

			err = src.Scan(context.Background(), func(Row) error { return nil })
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestScan_HeaderOnly(t *testing.T) {
	t.Parallel()

	src, err := NewReader("t.csv", strings.NewReader("input,response\n"), Options{})
	require.NoError(t, err)
	assert.Empty(t, collect(t, src))
}

func TestScan_MissingFile(t *testing.T) {
	t.Parallel()

	src, err := Open(context.Background(), filepath.Join(t.TempDir(), "absent.csv"), Options{})
	require.NoError(t, err)

	err = src.Scan(context.Background(), func(Row) error { return nil })
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestScan_CallbackErrorStops(t *testing.T) {
	t.Parallel()

	src, err := NewReader("t.csv", strings.NewReader(sampleCSV), Options{})
	require.NoError(t, err)

	stop := errors.New("stop")
	calls := 0
	err = src.Scan(context.Background(), func(Row) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestScan_ContextCanceled(t *testing.T) {
	t.Parallel()

	src, err := NewReader("t.csv", strings.NewReader(sampleCSV), Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = src.Scan(ctx, func(Row) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScan_LegacyEncoding(t *testing.T) {
	t.Parallel()

	utf8Data := "input,response\n你好,哈囉！\n"
	big5Data, err := traditionalchinese.Big5.NewEncoder().String(utf8Data)
	require.NoError(t, err)

	src, err := Open(context.Background(), writeFile(t, "big5.csv", []byte(big5Data)), Options{Encoding: "big5"})
	require.NoError(t, err)

	rows := collect(t, src)
	require.Len(t, rows, 1)
	assert.Equal(t, "你好", rows[0].Input)
	assert.Equal(t, "哈囉！", rows[0].Response)
}

func TestOpen_UnknownEncoding(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "chat_data.csv", Options{Encoding: "klingon-8"})
	assert.Error(t, err)
}

func TestOpen_UnsupportedScheme(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "ftp://example.com/chat.csv", Options{})
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}

func TestOpen_S3(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/tables/chat_data.csv" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<Error><Code>NoSuchKey</Code></Error>`)
			return
		}
		w.Header().Set("ETag", `"abc"`)
		_, _ = io.WriteString(w, sampleCSV)
	}))
	t.Cleanup(srv.Close)

	opts := Options{S3: r2client.Config{Endpoint: srv.URL, AccessKeyID: "id", SecretKey: "secret"}}

	src, err := Open(context.Background(), "s3://chat/tables/chat_data.csv", opts)
	require.NoError(t, err)
	wantSampleRows(t, collect(t, src))

	missing, err := Open(context.Background(), "s3://chat/tables/absent.csv", opts)
	require.NoError(t, err)
	err = missing.Scan(context.Background(), func(Row) error { return nil })
	assert.ErrorIs(t, err, r2client.ErrNotFound)
}

func TestOpen_S3RequiresCredentials(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "s3://chat/chat_data.csv", Options{})
	assert.Error(t, err)
}

func createSQLite(t *testing.T, stmts ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chat.db")
	conn, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer conn.Close()
	for _, stmt := range stmts {
		_, err := conn.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return path
}

func TestOpen_SQLite(t *testing.T) {
	t.Parallel()

	path := createSQLite(t,
		`CREATE TABLE chat_data (id INTEGER PRIMARY KEY, input TEXT, response TEXT)`,
		`INSERT INTO chat_data (input, response) VALUES ('Hello', 'Hi there!')`,
		`INSERT INTO chat_data (input, response) VALUES ('how are you, bot', 'Fine, thanks.')`,
		`INSERT INTO chat_data (input, response) VALUES ('bye', 'Goodbye!')`,
		`INSERT INTO chat_data (input, response) VALUES (NULL, 'orphan')`,
	)

	src, err := Open(context.Background(), "sqlite://"+path, Options{})
	require.NoError(t, err)

	rows := collect(t, src)
	require.Len(t, rows, 4)
	wantSampleRows(t, rows[:3])
	assert.Equal(t, Row{Position: 4, Input: "", Response: "orphan"}, rows[3])
}

func TestOpen_SQLiteNamedTable(t *testing.T) {
	t.Parallel()

	path := createSQLite(t,
		`CREATE TABLE faq (input TEXT, response TEXT, lang TEXT)`,
		`INSERT INTO faq VALUES ('hello', 'Hi there!', 'en')`,
	)

	src, err := Open(context.Background(), "sqlite://"+path+"?table=faq", Options{})
	require.NoError(t, err)

	rows := collect(t, src)
	require.Len(t, rows, 1)
	assert.Equal(t, "hello", rows[0].Input)
}

func TestOpen_SQLiteErrors(t *testing.T) {
	t.Parallel()

	path := createSQLite(t, `CREATE TABLE chat_data (input TEXT, answer TEXT)`)

	src, err := Open(context.Background(), "sqlite://"+path, Options{})
	require.NoError(t, err)
	err = src.Scan(context.Background(), func(Row) error { return nil })
	assert.ErrorIs(t, err, ErrMissingColumn)

	src, err = Open(context.Background(), "sqlite://"+path+"?table=absent", Options{})
	require.NoError(t, err)
	assert.Error(t, src.Scan(context.Background(), func(Row) error { return nil }))

	src, err = Open(context.Background(), "sqlite://"+filepath.Join(t.TempDir(), "absent.db"), Options{})
	require.NoError(t, err)
	assert.Error(t, src.Scan(context.Background(), func(Row) error { return nil }))

	_, err = Open(context.Background(), "sqlite://"+path+"?table=chat_data;DROP", Options{})
	assert.Error(t, err)
}
