// Package recorder writes the output of every tapped signal path to a
// parquet file, one file per path and build.
package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/segmentio/parquet-go"
	"github.com/specialistvlad/scopyflow/internal/blocks"
	"github.com/specialistvlad/scopyflow/internal/ctxlog"
	"github.com/specialistvlad/scopyflow/internal/flowgraph"
	"github.com/specialistvlad/scopyflow/internal/topblock"
)

// Row is one item of a recorded stream. Values holds itemSize floats, so a
// complex stream records I and Q side by side.
type Row struct {
	Index  int64     `parquet:"index"`
	Values []float32 `parquet:"values"`
}

// Metadata is stored as JSON under the "recording" key of every file.
type Metadata struct {
	Recording string `json:"recording"`
	Session   string `json:"session,omitempty"`
	Path      string `json:"path"`
	Build     int    `json:"build"`
	ItemSize  int    `json:"item_size"`
}

type stream struct {
	mu     sync.Mutex
	file   *os.File
	writer *parquet.GenericWriter[Row]
	size   int
	index  int64
	err    error
}

func (s *stream) write(chunk []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writer == nil {
		return nil
	}
	rows := make([]Row, len(chunk)/s.size)
	for i := range rows {
		rows[i] = Row{
			Index:  s.index,
			Values: append([]float32(nil), chunk[i*s.size:(i+1)*s.size]...),
		}
		s.index++
	}
	_, err := s.writer.Write(rows)
	return err
}

func (s *stream) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writer == nil {
		return nil
	}
	err := s.writer.Close()
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	s.writer = nil
	return err
}

// Recorder is a tap consumer. Attach opens a file and connects a sink that
// appends rows to it; Detach closes every open file.
type Recorder struct {
	ctx     context.Context
	dir     string
	id      uuid.UUID
	session string

	mu      sync.Mutex
	build   int
	streams []*stream
	files   []string
	errs    []error
}

// New records into dir, which is created if missing. session is copied
// into the metadata of every file.
func New(ctx context.Context, dir, session string) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("recorder: %w", err)
	}
	r := &Recorder{ctx: ctx, dir: dir, id: uuid.New(), session: session}
	ctxlog.FromContext(ctx).Info("Recorder ready.", "dir", dir, "recording", r.id)
	return r, nil
}

func (r *Recorder) ID() uuid.UUID {
	return r.id
}

// Attach implements tap.Consumer.
func (r *Recorder) Attach(m *topblock.Manager, path topblock.SignalPathNode, end flowgraph.Endpoint) error {
	size := end.Block.Signature().Outputs[end.Port]

	r.mu.Lock()
	build := r.build
	r.mu.Unlock()

	meta, err := json.Marshal(Metadata{
		Recording: r.id.String(),
		Session:   r.session,
		Path:      path.Name(),
		Build:     build,
		ItemSize:  size,
	})
	if err != nil {
		return err
	}

	name := filepath.Join(r.dir, fmt.Sprintf("%s-%03d-%s.parquet", r.id, build, fileSafe(path.Name())))
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("recorder: %w", err)
	}
	s := &stream{
		file:   f,
		writer: parquet.NewGenericWriter[Row](f, parquet.KeyValueMetadata("recording", string(meta))),
		size:   size,
	}

	sink := blocks.NewCallbackSink(m.Graph().UniqueName("parquet_sink"), size, func(_ context.Context, chunk []float32) error {
		return s.write(chunk)
	})
	if err := m.Connect(end.Block, end.Port, sink, 0); err != nil {
		_ = s.close()
		_ = os.Remove(name)
		return err
	}

	r.mu.Lock()
	r.streams = append(r.streams, s)
	r.files = append(r.files, name)
	r.mu.Unlock()
	ctxlog.FromContext(r.ctx).Debug("Recording signal path.", "path", path.Name(), "file", name)
	return nil
}

// Detach implements tap.Consumer. It closes the files of the last build.
func (r *Recorder) Detach() {
	r.mu.Lock()
	streams := r.streams
	r.streams = nil
	if len(streams) > 0 {
		r.build++
	}
	r.mu.Unlock()

	for _, s := range streams {
		if err := s.close(); err != nil {
			ctxlog.FromContext(r.ctx).Error("Failed to close recording.", "error", err)
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
		}
	}
}

// Files returns every file created so far.
func (r *Recorder) Files() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.files...)
}

// Close flushes open files and returns every error seen while closing.
func (r *Recorder) Close() error {
	r.Detach()
	r.mu.Lock()
	defer r.mu.Unlock()
	return errors.Join(r.errs...)
}

// ReadFile returns the rows and metadata of a recording.
func ReadFile(name string) ([]Row, Metadata, error) {
	var meta Metadata
	f, err := os.Open(name)
	if err != nil {
		return nil, meta, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, meta, err
	}

	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, meta, fmt.Errorf("recorder: %s: %w", name, err)
	}
	if v, ok := pf.Lookup("recording"); ok {
		if err := json.Unmarshal([]byte(v), &meta); err != nil {
			return nil, meta, fmt.Errorf("recorder: %s metadata: %w", name, err)
		}
	}

	rows, err := parquet.ReadFile[Row](name)
	if err != nil {
		return nil, meta, fmt.Errorf("recorder: %s: %w", name, err)
	}
	return rows, meta, nil
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, s)
}
