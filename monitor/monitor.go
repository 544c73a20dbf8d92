// Package monitor turns a running router.Route call into an HTTP-inspectable
// server: pass/net progress, process resource usage, and an on-demand CPU
// profile, adapted from the teacher's monitoring.Monitor.
package monitor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/ocular/device"
	"github.com/sarchlab/ocular/internal/hook"
)

// Monitor is a hook.Hook: registering it in router.Config.Hooks makes
// Route's pass/net/overuse events observable over HTTP while routing runs.
type Monitor struct {
	portNumber int
	pool       *device.Pool

	mu             sync.Mutex
	pass           int
	netsDispatched int
	netsBound      int
	netsRippedUp   int
	overusedWires  int
}

// NewMonitor creates a Monitor with no device.Pool attached yet.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port the monitor's HTTP server listens on. A value
// under 1000 is rejected the same way the teacher's monitor rejects
// privileged ports, falling back to a random free port instead.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"port %d is not allowed for the monitor server, using a random port instead\n", portNumber)
		portNumber = 0
	}
	m.portNumber = portNumber
	return m
}

// RegisterPool attaches the device.Pool whose in-flight slots /api/slot/{id}
// serializes.
func (m *Monitor) RegisterPool(p *device.Pool) *Monitor {
	m.pool = p
	return m
}

// Func implements hook.Hook: every pass/net/overuse event the driver
// reports updates the counters the HTTP handlers below report.
func (m *Monitor) Func(ctx hook.HookCtx) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch ctx.Pos {
	case hook.PosPassStart:
		m.pass, _ = ctx.Item.(int)
	case hook.PosNetDispatch:
		m.netsDispatched++
	case hook.PosNetBound:
		m.netsBound++
	case hook.PosNetRipup:
		m.netsRippedUp++
	case hook.PosOveruse:
		m.overusedWires, _ = ctx.Item.(int)
	}
}

type progressRsp struct {
	Pass           int `json:"pass"`
	NetsDispatched int `json:"nets_dispatched"`
	NetsBound      int `json:"nets_bound"`
	NetsRippedUp   int `json:"nets_ripped_up"`
	OverusedWires  int `json:"overused_wires"`
}

func (m *Monitor) listProgress(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	rsp := progressRsp{
		Pass:           m.pass,
		NetsDispatched: m.netsDispatched,
		NetsBound:      m.netsBound,
		NetsRippedUp:   m.netsRippedUp,
		OverusedWires:  m.overusedWires,
	}
	m.mu.Unlock()

	b, err := json.Marshal(rsp)
	dieOnErr(err)
	_, err = w.Write(b)
	dieOnErr(err)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	dieOnErr(err)

	cpuPercent, err := proc.CPUPercent()
	dieOnErr(err)

	mem, err := proc.MemoryInfo()
	dieOnErr(err)

	b, err := json.Marshal(resourceRsp{CPUPercent: cpuPercent, MemorySize: mem.RSS})
	dieOnErr(err)
	_, err = w.Write(b)
	dieOnErr(err)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)
	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	b, err := json.Marshal(prof)
	dieOnErr(err)
	_, err = w.Write(b)
	dieOnErr(err)
}

// slotDump is what /api/slot/{id} serializes — a device.Pool slot is not
// exported widely enough for goseth to walk directly, so this mirrors the
// fields a caller debugging a stuck route would want.
type slotDump struct {
	Slot int           `json:"slot"`
	Cfg  device.Config `json:"pool_config"`
}

func (m *Monitor) listSlot(w http.ResponseWriter, r *http.Request) {
	if m.pool == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	idStr := mux.Vars(r)["id"]
	id, err := strconv.Atoi(idStr)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	dump := slotDump{Slot: id, Cfg: m.pool.Config()}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&dump)
	serializer.SetMaxDepth(2)
	err = serializer.Serialize(w)
	dieOnErr(err)
}

// StartServer starts the monitor's HTTP server in the background and
// returns the address it bound to.
func (m *Monitor) StartServer() string {
	r := mux.NewRouter()
	r.HandleFunc("/api/progress", m.listProgress)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.HandleFunc("/api/slot/{id}", m.listSlot)

	actualPort := ":0"
	if m.portNumber >= 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	addr := fmt.Sprintf("http://localhost:%d", listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "monitoring route at %s\n", addr)

	go func() {
		err := http.Serve(listener, r)
		dieOnErr(err)
	}()

	return addr
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
