package server

import (
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/moonraker-sim/moonraker-sim/sim"
)

// nullID is the response id for envelope-level failures, where no request id
// could be recovered.
var nullID = json.RawMessage("null")

// Dispatcher decodes inbound JSON-RPC frames and routes them to engine
// operations. One dispatcher serves every connection; per-connection identity
// travels as the sim.ConnID argument.
type Dispatcher struct {
	loop      *sim.Loop
	files     FileLister
	connCount func() int
}

// NewDispatcher wires the dispatcher to the engine loop and its collaborators.
// connCount feeds the websocket_count field of server.info; nil means zero.
func NewDispatcher(loop *sim.Loop, files FileLister, connCount func() int) *Dispatcher {
	if connCount == nil {
		connCount = func() int { return 0 }
	}
	return &Dispatcher{loop: loop, files: files, connCount: connCount}
}

// Dispatch handles one frame from conn. The returned response is nil exactly
// when the frame was a well-formed notification; malformed envelopes always
// get an error response (with a null id) so no carried id is ever dropped.
func (d *Dispatcher) Dispatch(conn sim.ConnID, frame []byte) *Response {
	var resp *Response
	d.dispatch(conn, frame, func(r *Response) { resp = r })
	return resp
}

// dispatch decodes one frame and runs its method inside a single engine-loop
// step, handing any response to deliver from within that same step. No tick
// can run between a method's mutation and the delivery of its response, so a
// subscriber never sees a delta for a subscription it has not had confirmed.
func (d *Dispatcher) dispatch(conn sim.ConnID, frame []byte, deliver func(*Response)) {
	req, rpcErr := DecodeRequest(frame)
	if rpcErr != nil {
		logrus.Warnf("rpc: rejecting frame from %s: %s", conn, rpcErr.Message)
		deliver(&Response{JSONRPC: Version, Error: rpcErr, ID: nullID})
		return
	}

	doErr := d.loop.Do(func(e *sim.Engine) {
		result, err := d.call(e, conn, req)
		if req.Notification() {
			if err != nil {
				logrus.Warnf("rpc: notification %s from %s failed: %v", req.Method, conn, err)
			}
			return
		}
		if err != nil {
			deliver(&Response{JSONRPC: Version, Error: errorFrom(err), ID: req.ID})
			return
		}
		deliver(&Response{JSONRPC: Version, Result: result, ID: req.ID})
	})
	if doErr != nil && !req.Notification() {
		deliver(&Response{JSONRPC: Version, Error: errorFrom(doErr), ID: req.ID})
	}
}

// call executes the method's side effects and builds its result. Runs on the
// engine loop goroutine.
func (d *Dispatcher) call(e *sim.Engine, conn sim.ConnID, req *Request) (any, error) {
	switch req.Method {
	case "printer.objects.subscribe":
		return d.subscribe(e, conn, req.Params)
	case "printer.objects.query":
		return d.query(e, req.Params)
	case "printer.objects.list":
		return map[string]any{"objects": e.List()}, nil
	case "server.info":
		return serverInfo(d.connCount()), nil
	case "printer.info":
		return printerInfo(e.Job()), nil
	case "printer.print.start":
		return d.printStart(e, req.Params)
	case "printer.print.cancel":
		return jobControl(e.CancelPrint)
	case "printer.print.pause":
		return jobControl(e.PausePrint)
	case "printer.print.resume":
		return jobControl(e.ResumePrint)
	case "printer.gcode.script":
		return d.gcodeScript(e, req.Params)
	case "server.files.list":
		return d.filesList(req.Params)
	case "server.restart":
		// Simulated: acknowledge without restarting anything.
		return "ok", nil
	default:
		return nil, &RPCError{Code: CodeMethodNotFound, Message: "method not found: " + req.Method}
	}
}

// objectsParams is the params shape shared by subscribe and query. A null
// field list means all fields of that object.
type objectsParams struct {
	Objects map[string][]string `json:"objects"`
}

// statusResult pairs a status map with the simulated clock, the shape clients
// expect from subscribe and query.
type statusResult struct {
	Eventtime float64    `json:"eventtime"`
	Status    sim.Status `json:"status"`
}

func (d *Dispatcher) subscribe(e *sim.Engine, conn sim.ConnID, params json.RawMessage) (any, error) {
	var p objectsParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	status, err := e.Subscribe(conn, sim.Filter(p.Objects))
	if err != nil {
		return nil, err
	}
	return statusResult{Eventtime: e.Eventtime(), Status: status}, nil
}

func (d *Dispatcher) query(e *sim.Engine, params json.RawMessage) (any, error) {
	var p objectsParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return statusResult{Eventtime: e.Eventtime(), Status: e.Query(p.Objects)}, nil
}

func (d *Dispatcher) printStart(e *sim.Engine, params json.RawMessage) (any, error) {
	var p struct {
		Filename string `json:"filename"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if _, err := e.StartPrint(p.Filename); err != nil {
		return nil, err
	}
	return "ok", nil
}

// jobControl runs one parameterless job transition.
func jobControl(op func() error) (any, error) {
	if err := op(); err != nil {
		return nil, err
	}
	return "ok", nil
}

func (d *Dispatcher) gcodeScript(e *sim.Engine, params json.RawMessage) (any, error) {
	var p struct {
		Script string `json:"script"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := e.RunGcode(p.Script); err != nil {
		return nil, err
	}
	return "ok", nil
}

func (d *Dispatcher) filesList(params json.RawMessage) (any, error) {
	var p struct {
		Root string `json:"root"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Root == "" {
		p.Root = "gcodes"
	}
	listing, err := d.files.ListFiles(p.Root)
	if err != nil {
		return nil, err
	}
	return listing, nil
}

// decodeParams unmarshals params into v; absent params leave v zero.
// Structural mismatches map to CodeInvalidParams.
func decodeParams(params json.RawMessage, v any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return &RPCError{Code: CodeInvalidParams, Message: "invalid params: " + err.Error()}
	}
	return nil
}
