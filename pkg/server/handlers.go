package server

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/partplan/pkg/errors"
	pkgio "github.com/matzehuels/partplan/pkg/io"
	"github.com/matzehuels/partplan/pkg/partition"
)

type presetInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Size        int64  `json:"size"`
	Partitions  int    `json:"partitions"`
}

// layoutResponse is the JSON form of a laid-out table.
type layoutResponse struct {
	FlashSize     int64                 `json:"flash_size"`
	TableLocation int64                 `json:"table_location"`
	Available     int64                 `json:"available"`
	Fits          bool                  `json:"fits"`
	Partitions    []partition.Partition `json:"partitions"`
	Resized       *int64                `json:"resized,omitempty"`
}

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	list := s.presets.List()
	out := make([]presetInfo, len(list))
	for i, p := range list {
		out[i] = presetInfo{Name: p.Name, Description: p.Description, Size: p.Size(), Partitions: len(p.Entries)}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	p, err := s.presets.Get(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	q, err := s.parseQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	tbl := partition.New(q.dev, partition.WithHooks(s.hooks()))
	if err := p.Apply(tbl); err != nil {
		writeError(w, err)
		return
	}
	s.writeTable(w, r, tbl, nil)
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "read body"))
		return
	}
	tbl, err := s.load(r, body)
	if err != nil {
		writeError(w, err)
		return
	}
	s.writeTable(w, r, tbl, nil)
}

func (s *Server) handleSharedLayout(w http.ResponseWriter, r *http.Request) {
	csv, err := pkgio.DecodeSharePayload(r.URL.RawQuery)
	if err != nil {
		writeError(w, err)
		return
	}
	tbl, err := s.load(r, csv)
	if err != nil {
		writeError(w, err)
		return
	}
	s.writeTable(w, r, tbl, nil)
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "missing name parameter"))
		return
	}
	size, err := pkgio.ParseSize(r.URL.Query().Get("size"))
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "size parameter"))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "read body"))
		return
	}
	tbl, err := s.load(r, body)
	if err != nil {
		writeError(w, err)
		return
	}
	committed, err := tbl.Resize(name, size)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("X-Resized-Size", "0x"+strconv.FormatInt(committed, 16))
	s.writeTable(w, r, tbl, &committed)
}

// layoutQuery holds the device overrides of a layout request.
type layoutQuery struct {
	dev         partition.Device
	hasFlash    bool
	hasLocation bool
}

func (s *Server) parseQuery(r *http.Request) (layoutQuery, error) {
	q := layoutQuery{dev: s.dev}
	if v := r.URL.Query().Get("flash"); v != "" {
		n, err := pkgio.ParseSize(v)
		if err != nil || n <= 0 {
			return q, errors.New(errors.ErrCodeInvalidInput, "invalid flash parameter %q", v)
		}
		if n > maxFlashSize {
			return q, errors.New(errors.ErrCodeInvalidInput,
				"flash parameter %q exceeds the 0x%x limit", v, maxFlashSize)
		}
		q.dev.FlashCapacity = n
		q.hasFlash = true
	}
	if v := r.URL.Query().Get("table_offset"); v != "" {
		n, err := pkgio.ParseSize(v)
		if err != nil {
			return q, errors.New(errors.ErrCodeInvalidInput, "invalid table_offset parameter %q", v)
		}
		if !partition.IsAligned(n, partition.DataAlignment) {
			return q, errors.New(errors.ErrCodeMisalignedOffset,
				"table_offset 0x%x is not a multiple of 0x%x", n, partition.DataAlignment)
		}
		q.dev.TableLocation = n
		q.hasLocation = true
	}
	return q, nil
}

// load builds a fresh table for one request from CSV text.
func (s *Server) load(r *http.Request, csv []byte) (*partition.Table, error) {
	q, err := s.parseQuery(r)
	if err != nil {
		return nil, err
	}
	entries, err := pkgio.ReadCSV(bytes.NewReader(csv))
	if err != nil {
		return nil, err
	}
	tbl := partition.New(q.dev, partition.WithHooks(s.hooks()))
	opts := pkgio.LoadOptions{KeepCapacity: q.hasFlash, KeepLocation: q.hasLocation}
	if err := pkgio.Load(entries, tbl, opts); err != nil {
		return nil, err
	}
	return tbl, nil
}

func (s *Server) writeTable(w http.ResponseWriter, r *http.Request, tbl *partition.Table, resized *int64) {
	if wantsJSON(r) {
		dev := tbl.Device()
		writeJSON(w, http.StatusOK, layoutResponse{
			FlashSize:     dev.FlashCapacity,
			TableLocation: dev.TableLocation,
			Available:     tbl.Available(),
			Fits:          tbl.Fits(),
			Partitions:    tbl.Partitions(),
			Resized:       resized,
		})
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := pkgio.WriteCSV(w, tbl.Partitions()); err != nil {
		s.logger.Error("write response", "err", err)
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
