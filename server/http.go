package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/moonraker-sim/moonraker-sim/sim"
)

// Handler builds the full HTTP surface: the REST routes and the websocket
// endpoint. REST semantics mirror the JSON-RPC methods; both paths execute
// their mutations inside the engine loop before writing any response.
func Handler(loop *sim.Loop, disp *Dispatcher, hub *Hub, files FileLister) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/server/info", restGet(func(r *http.Request) (any, error) {
		return serverInfo(hub.Count()), nil
	}))
	mux.HandleFunc("/printer/info", restGet(func(r *http.Request) (any, error) {
		var job *sim.Job
		if err := loop.Do(func(e *sim.Engine) { job = e.Job() }); err != nil {
			return nil, err
		}
		return printerInfo(job), nil
	}))
	mux.HandleFunc("/printer/objects/list", restGet(func(r *http.Request) (any, error) {
		var names []string
		if err := loop.Do(func(e *sim.Engine) { names = e.List() }); err != nil {
			return nil, err
		}
		return map[string]any{"objects": names}, nil
	}))
	mux.HandleFunc("/printer/objects/query", restGet(func(r *http.Request) (any, error) {
		req := queryRequest(r)
		var res statusResult
		err := loop.Do(func(e *sim.Engine) {
			res.Status = e.Query(req)
			res.Eventtime = e.Eventtime()
		})
		if err != nil {
			return nil, err
		}
		return res, nil
	}))
	mux.HandleFunc("/server/files/list", restGet(func(r *http.Request) (any, error) {
		root := r.URL.Query().Get("root")
		if root == "" {
			root = "gcodes"
		}
		listing, err := files.ListFiles(root)
		if err != nil {
			return nil, err
		}
		return listing, nil
	}))

	mux.HandleFunc("/printer/print/start", restPost(func(r *http.Request) (any, error) {
		var body struct {
			Filename string `json:"filename"`
		}
		if err := decodeBody(r, &body); err != nil {
			return nil, err
		}
		var startErr error
		if err := loop.Do(func(e *sim.Engine) { _, startErr = e.StartPrint(body.Filename) }); err != nil {
			return nil, err
		}
		if startErr != nil {
			return nil, startErr
		}
		return "ok", nil
	}))
	mux.HandleFunc("/printer/print/cancel", jobControlRoute(loop, (*sim.Engine).CancelPrint))
	mux.HandleFunc("/printer/print/pause", jobControlRoute(loop, (*sim.Engine).PausePrint))
	mux.HandleFunc("/printer/print/resume", jobControlRoute(loop, (*sim.Engine).ResumePrint))

	mux.HandleFunc("/printer/gcode/script", restPost(func(r *http.Request) (any, error) {
		var body struct {
			Script string `json:"script"`
		}
		if err := decodeBody(r, &body); err != nil {
			return nil, err
		}
		var gcodeErr error
		if err := loop.Do(func(e *sim.Engine) { gcodeErr = e.RunGcode(body.Script) }); err != nil {
			return nil, err
		}
		if gcodeErr != nil {
			return nil, gcodeErr
		}
		return "ok", nil
	}))
	mux.HandleFunc("/server/restart", restPost(func(r *http.Request) (any, error) {
		// Simulated restart, acknowledged only.
		return "ok", nil
	}))

	mux.HandleFunc("/websocket", WSHandler(loop, disp, hub))

	return mux
}

// jobControlRoute builds the POST route for a parameterless job transition.
func jobControlRoute(loop *sim.Loop, op func(*sim.Engine) error) http.HandlerFunc {
	return restPost(func(r *http.Request) (any, error) {
		var opErr error
		if err := loop.Do(func(e *sim.Engine) { opErr = op(e) }); err != nil {
			return nil, err
		}
		if opErr != nil {
			return nil, opErr
		}
		return "ok", nil
	})
}

// queryRequest parses /printer/objects/query parameters. The objects key is a
// comma-separated list of object names (all fields); any other key is treated
// as object=field,field the way Moonraker's REST query does.
func queryRequest(r *http.Request) map[string][]string {
	req := make(map[string][]string)
	for key, values := range r.URL.Query() {
		if key == "objects" {
			for _, v := range values {
				for _, name := range strings.Split(v, ",") {
					if name = strings.TrimSpace(name); name != "" {
						req[name] = nil
					}
				}
			}
			continue
		}
		var fields []string
		for _, v := range values {
			for _, f := range strings.Split(v, ",") {
				if f = strings.TrimSpace(f); f != "" {
					fields = append(fields, f)
				}
			}
		}
		req[key] = fields
	}
	return req
}

// restGet wraps a handler with method filtering, CORS, and the result/error
// envelope. OPTIONS preflights answer 204 as the original server did.
func restGet(fn func(*http.Request) (any, error)) http.HandlerFunc {
	return restMethod(http.MethodGet, fn)
}

func restPost(fn func(*http.Request) (any, error)) http.HandlerFunc {
	return restMethod(http.MethodPost, fn)
}

func restMethod(method string, fn func(*http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		corsHeaders(w)
		switch r.Method {
		case http.MethodOptions:
			w.WriteHeader(http.StatusNoContent)
			return
		case method:
		default:
			w.Header().Set("Allow", method)
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		result, err := fn(r)
		if err != nil {
			status := httpStatus(err)
			logrus.Debugf("rest %s %s: %d %v", r.Method, r.URL.Path, status, err)
			writeError(w, status, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"result": result})
	}
}

// decodeBody parses an optional JSON body; malformed JSON is a validation error.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) { // empty body, fields keep zero values
			return nil
		}
		return sim.Errorf(sim.KindValidation, "malformed request body: %v", err)
	}
	return nil
}

// httpStatus maps the engine error taxonomy to HTTP statuses.
func httpStatus(err error) int {
	switch sim.KindOf(err) {
	case sim.KindValidation:
		return http.StatusBadRequest
	case sim.KindNotFound:
		return http.StatusNotFound
	case sim.KindState, sim.KindIdempotency:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func corsHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.Errorf("rest: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"code": status, "message": message},
	})
}
