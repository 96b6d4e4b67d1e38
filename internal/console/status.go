package console

import (
	"fmt"
	"net"
	"os"
	"runtime"
	"strings"
	"time"
)

// Status returns basic host metrics: CPU count, uptime, first IP.
func Status() string {
	return fmt.Sprintf("CPU cores: %d\nUptime: %s\nIP: %s",
		runtime.NumCPU(), hostUptime(), firstIP())
}

// CurrentTime returns the current UTC time in RFC3339.
func CurrentTime() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// hostUptime reads the host uptime from /proc/uptime.
func hostUptime() string {
	data, err := os.ReadFile("/proc/uptime")
	if err != nil {
		return "unknown"
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return "unknown"
	}
	return fields[0] + "s"
}

// firstIP returns the first non-loopback IP address or "unknown".
func firstIP() string {
	// Routing trick: no packet is sent for UDP dial.
	if conn, err := net.Dial("udp", "8.8.8.8:80"); err == nil {
		defer conn.Close()
		if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
			return addr.IP.String()
		}
	}

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "unknown"
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return "unknown"
}
