package location

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"sync"
	"time"

	"github.com/etsibreadud/qbloco-app/internal/tracking"

	"github.com/tidwall/gjson"
)

const (
	gpsdWatchCommand = `?WATCH={"enable":true,"json":true};` + "\n"
	gpsdDialTimeout  = 3 * time.Second
)

// GPSD streams fixes from a gpsd daemon. gpsd has no permission model and no
// accuracy preference, so Permission reports unsupported and HighAccuracy is
// ignored.
type GPSD struct {
	Addr string
	now  func() time.Time
}

func NewGPSD(addr string) *GPSD {
	return &GPSD{Addr: addr, now: time.Now}
}

func (g *GPSD) Available() bool {
	return g.Addr != ""
}

func (g *GPSD) Permission(context.Context) tracking.PermissionState {
	return tracking.PermissionUnsupported
}

type gpsdWatch struct {
	conn   net.Conn
	cancel context.CancelFunc
	once   sync.Once
}

func (w *gpsdWatch) stop() {
	w.once.Do(func() {
		w.cancel()
		_ = w.conn.Close()
	})
}

func (g *GPSD) Watch(onFix func(tracking.Fix), onError func(error), opts tracking.WatchOptions) (tracking.Subscription, error) {
	conn, err := net.DialTimeout("tcp", g.Addr, gpsdDialTimeout)
	if err != nil {
		return nil, &tracking.PositionError{
			Code:    tracking.CodePositionUnavailable,
			Message: fmt.Sprintf("dial gpsd %s: %v", g.Addr, err),
		}
	}
	if _, err := io.WriteString(conn, gpsdWatchCommand); err != nil {
		_ = conn.Close()
		return nil, &tracking.PositionError{
			Code:    tracking.CodePositionUnavailable,
			Message: fmt.Sprintf("enable gpsd watch: %v", err),
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &gpsdWatch{conn: conn, cancel: cancel}
	go g.read(ctx, w, onFix, onError, opts)
	return w, nil
}

func (g *GPSD) Clear(sub tracking.Subscription) {
	if w, ok := sub.(*gpsdWatch); ok {
		w.stop()
	}
}

func (g *GPSD) read(ctx context.Context, w *gpsdWatch, onFix func(tracking.Fix), onError func(error), opts tracking.WatchOptions) {
	defer w.stop()

	reader := bufio.NewReader(w.conn)
	lastFix := g.now()
	for {
		if opts.Timeout > 0 {
			_ = w.conn.SetReadDeadline(lastFix.Add(opts.Timeout))
		}
		line, err := reader.ReadBytes('\n')
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				onError(&tracking.PositionError{Code: tracking.CodeTimeout, Message: "no fix from gpsd within timeout"})
			} else {
				onError(&tracking.PositionError{Code: tracking.CodePositionUnavailable, Message: fmt.Sprintf("gpsd connection lost: %v", err)})
			}
			return
		}

		fix, ok, perr := parseReport(line)
		if perr != nil {
			onError(perr)
			return
		}
		if !ok {
			continue
		}
		now := g.now()
		if opts.MaximumAge > 0 && !fix.Timestamp.IsZero() && now.Sub(fix.Timestamp) > opts.MaximumAge {
			continue
		}
		lastFix = now
		onFix(fix)
	}
}

// parseReport decodes one gpsd JSON line. Only TPV reports with a 2D or 3D
// fix produce a Fix; other classes are skipped and ERROR ends the watch.
func parseReport(line []byte) (tracking.Fix, bool, error) {
	if !gjson.ValidBytes(line) {
		return tracking.Fix{}, false, nil
	}
	report := gjson.ParseBytes(line)

	switch report.Get("class").String() {
	case "TPV":
	case "ERROR":
		return tracking.Fix{}, false, &tracking.PositionError{Message: "gpsd: " + report.Get("message").String()}
	default:
		return tracking.Fix{}, false, nil
	}

	if report.Get("mode").Int() < 2 {
		return tracking.Fix{}, false, nil
	}
	lat, lon := report.Get("lat"), report.Get("lon")
	if !lat.Exists() || !lon.Exists() {
		return tracking.Fix{}, false, nil
	}

	fix := tracking.Fix{Lat: lat.Float(), Lng: lon.Float()}
	if ts := report.Get("time"); ts.Exists() {
		if t, err := time.Parse(time.RFC3339Nano, ts.String()); err == nil {
			fix.Timestamp = t
		}
	}

	if eph := report.Get("eph"); eph.Exists() {
		v := eph.Float()
		fix.Accuracy = &v
	} else if epx, epy := report.Get("epx"), report.Get("epy"); epx.Exists() && epy.Exists() {
		v := math.Max(epx.Float(), epy.Float())
		fix.Accuracy = &v
	}
	return fix, true, nil
}
