package frontdoor

import (
	"os"

	"github.com/grandcat/zeroconf"
)

// ServiceType is the mDNS service the front door registers.
const ServiceType = "_pepper-judge._tcp"

// Advertise registers the front door on the local network with the pairing
// code in its TXT record. Call Shutdown on the result to withdraw it.
func Advertise(code string, port int) (*zeroconf.Server, error) {
	host, _ := os.Hostname()
	if host == "" {
		host = "agent"
	}
	return zeroconf.Register(
		"pepper-judge-"+host,
		ServiceType,
		"local.",
		port,
		[]string{"txtv=1", "code=" + code},
		nil,
	)
}
