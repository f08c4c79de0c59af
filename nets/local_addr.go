package nets

import "net"

type IsLocalAddr func(addr string) bool

func (Module) IsLocalAddr() IsLocalAddr {
	return func(addr string) bool {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}
		if host == "" || host == "localhost" {
			return true
		}
		ips, err := net.LookupIP(host)
		if err != nil {
			// unresolvable hosts go through the proxy
			return false
		}
		for _, ip := range ips {
			if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() {
				return true
			}
		}
		return false
	}
}
