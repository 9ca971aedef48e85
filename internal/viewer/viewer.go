// Package viewer serves the group graph of a recorded run over HTTP for
// browser-side visualisers.
package viewer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/joshharrison/steploom/internal/state"
)

// --- Graph types ---

type GraphNode struct {
	ID          int    `json:"id"` // renumbered group id
	Original    int    `json:"original"`
	Step        string `json:"step"`
	Lane        int    `json:"lane"`
	ClockStart  int    `json:"clock_start"`
	ClockFinish int    `json:"clock_finish"`
	WaitTime    int    `json:"wait_time"`
	Admission   string `json:"admission"`
	IsCritical  bool   `json:"is_critical"`
}

type GraphEdge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type GraphMetadata struct {
	ID          string `json:"id"`
	CreatedAt   string `json:"created_at"`
	Source      string `json:"source"`
	TotalGroups int    `json:"total_groups"`
	Makespan    int    `json:"makespan"`
	Bound       int    `json:"bound"`
}

type Graph struct {
	Nodes        []GraphNode   `json:"nodes"`
	Edges        []GraphEdge   `json:"edges"`
	CriticalPath []int         `json:"critical_path"`
	Metadata     GraphMetadata `json:"metadata"`
}

// ToGraph converts a run record into the graph the UI renders. Ids are the
// renumbered ones; groups missing from the mapping keep their original id.
func ToGraph(rec *state.RunRecord) *Graph {
	newID := func(g int) int {
		if n, ok := rec.Mapping[g]; ok {
			return n
		}
		return g
	}

	critical := make(map[int]bool, len(rec.Critical))
	path := make([]int, 0, len(rec.Critical))
	for _, g := range rec.Critical {
		critical[g] = true
		path = append(path, newID(g))
	}

	nodes := make([]GraphNode, 0, len(rec.Entries))
	edges := []GraphEdge{}
	for _, e := range rec.Entries {
		nodes = append(nodes, GraphNode{
			ID:          newID(e.Group),
			Original:    e.Group,
			Step:        e.Step,
			Lane:        e.DestinationGroup,
			ClockStart:  e.ClockStart,
			ClockFinish: e.ClockFinish,
			WaitTime:    e.WaitTime,
			Admission:   string(e.Admission),
			IsCritical:  critical[e.Group],
		})
		if e.PreviousGroup != 0 {
			edges = append(edges, GraphEdge{From: newID(e.PreviousGroup), To: newID(e.Group)})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].To != edges[j].To {
			return edges[i].To < edges[j].To
		}
		return edges[i].From < edges[j].From
	})

	return &Graph{
		Nodes:        nodes,
		Edges:        edges,
		CriticalPath: path,
		Metadata: GraphMetadata{
			ID:          rec.ID,
			CreatedAt:   rec.CreatedAt.Format(time.RFC3339),
			Source:      rec.Source,
			TotalGroups: rec.Groups,
			Makespan:    rec.Makespan,
			Bound:       rec.Bound,
		},
	}
}

// --- HTTP server ---

type server struct {
	mu    sync.RWMutex
	graph *Graph
}

func (s *server) handlePostGraph(w http.ResponseWriter, r *http.Request) {
	var rec state.RunRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	g := ToGraph(&rec)

	s.mu.Lock()
	s.graph = g
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(g)
}

func (s *server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	g := s.graph
	s.mu.RUnlock()

	if g == nil {
		http.Error(w, "no graph loaded", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(g)
}

// Handler returns the viewer's routes, optionally preloaded with a run.
func Handler(rec *state.RunRecord) http.Handler {
	srv := &server{}
	if rec != nil {
		srv.graph = ToGraph(rec)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/graph", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			srv.handlePostGraph(w, r)
		case http.MethodGet:
			srv.handleGetGraph(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("steploom viewer: GET /graph for the current run graph, POST /graph to replace it.\n"))
	})
	return mux
}

// Start launches the viewer HTTP server on the given port in the background.
// Returns the base URL (e.g. "http://localhost:7272") or an error.
func Start(port int, rec *state.RunRecord) (string, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return "", fmt.Errorf("listen on port %d: %w", port, err)
	}

	go http.Serve(ln, Handler(rec))

	addr := fmt.Sprintf("http://localhost:%d", port)
	return addr, nil
}

// PostRecord sends a run record to a running viewer server.
func PostRecord(addr string, rec *state.RunRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	resp, err := http.Post(addr+"/graph", "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("POST /graph: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("POST /graph returned %d", resp.StatusCode)
	}

	return nil
}

// IsPortOpen checks if something is listening on the given address.
func IsPortOpen(addr string) bool {
	conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
