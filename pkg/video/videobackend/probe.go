package videobackend

import (
	"context"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/tauraamui/xerror"
)

const probeTimeout = 5 * time.Second

var defaultPorts = map[string]string{
	"rtsp":  "554",
	"http":  "80",
	"https": "443",
}

// probe dials network stream addresses before handing them to OpenCV,
// which can otherwise block for a long time on unreachable hosts. Local
// devices and file paths are not probed.
func probe(cancel context.Context, addr string) error {
	host, ok, err := networkHost(addr)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	ctx, ccancel := context.WithTimeout(cancel, probeTimeout)
	defer ccancel()

	d := &net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return xerror.Errorf("unable to reach stream host %s: %w", host, err)
	}
	return conn.Close()
}

func networkHost(addr string) (string, bool, error) {
	if len(addr) == 0 {
		return "", false, xerror.New("connection address is undefined")
	}

	if !strings.Contains(addr, "://") {
		return "", false, nil
	}

	u, err := url.Parse(addr)
	if err != nil {
		return "", false, err
	}

	port, supported := defaultPorts[u.Scheme]
	if !supported {
		return "", false, nil
	}

	host := u.Host
	if len(u.Port()) == 0 {
		host = net.JoinHostPort(u.Hostname(), port)
	}

	return host, true, nil
}
