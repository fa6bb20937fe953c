package collect

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"

	"github.com/siteaudit/siteaudit/internal/identity"
)

// CollectDNS resolves A, AAAA (with TTLs) and CNAME for the host.
func CollectDNS(ctx context.Context, deps Deps, id identity.Identity) (out Output[DNSFacts]) {
	defer guard(&out)

	host := id.Host()
	if host == "" {
		return Fail[DNSFacts]("no host to resolve")
	}
	server := deps.DNSServer
	if server == "" {
		conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
		if err != nil || len(conf.Servers) == 0 {
			return Fail[DNSFacts]("no resolver configured")
		}
		server = net.JoinHostPort(conf.Servers[0], conf.Port)
	}

	client := &dns.Client{Timeout: TimeoutDNS}
	facts := DNSFacts{}

	query := func(qtype uint16) ([]dns.RR, error) {
		msg := new(dns.Msg)
		msg.SetQuestion(dns.Fqdn(host), qtype)
		in, _, err := client.ExchangeContext(ctx, msg, server)
		if err != nil {
			return nil, err
		}
		return in.Answer, nil
	}

	aAnswers, errA := query(dns.TypeA)
	aaaaAnswers, errAAAA := query(dns.TypeAAAA)
	if errA != nil && errAAAA != nil {
		return Fail[DNSFacts](fmt.Sprintf("dns lookup failed: %v", errA))
	}
	for _, rr := range aAnswers {
		switch r := rr.(type) {
		case *dns.A:
			facts.A = append(facts.A, DNSRecord{Value: r.A.String(), TTL: rr.Header().Ttl})
		case *dns.CNAME:
			facts.CNAME = &DNSRecord{Value: r.Target, TTL: rr.Header().Ttl}
		}
	}
	for _, rr := range aaaaAnswers {
		if r, ok := rr.(*dns.AAAA); ok {
			facts.AAAA = append(facts.AAAA, DNSRecord{Value: r.AAAA.String(), TTL: rr.Header().Ttl})
		}
	}
	if facts.CNAME == nil {
		if answers, err := query(dns.TypeCNAME); err == nil {
			for _, rr := range answers {
				if r, ok := rr.(*dns.CNAME); ok {
					facts.CNAME = &DNSRecord{Value: r.Target, TTL: rr.Header().Ttl}
					break
				}
			}
		}
	}
	if len(facts.A) == 0 && len(facts.AAAA) == 0 && facts.CNAME == nil {
		return Fail[DNSFacts]("no dns records found")
	}
	return OK(facts)
}

// CollectTLS performs a single handshake and records the negotiated
// protocol, issuer, expiry, and SANs. No cipher probing.
func CollectTLS(ctx context.Context, deps Deps, id identity.Identity) (out Output[TLSFacts]) {
	defer guard(&out)

	host := id.Host()
	if host == "" {
		return Fail[TLSFacts]("no host for handshake")
	}
	dialer := &net.Dialer{Timeout: TimeoutTLS}
	conn, err := tls.DialWithDialer(dialer, "tcp", net.JoinHostPort(host, "443"), &tls.Config{
		ServerName: host,
	})
	if err != nil {
		return Fail[TLSFacts](fmt.Sprintf("tls handshake: %v", err))
	}
	defer conn.Close()

	state := conn.ConnectionState()
	facts := TLSFacts{Protocol: tls.VersionName(state.Version)}
	if len(state.PeerCertificates) > 0 {
		leaf := state.PeerCertificates[0]
		facts.Issuer = leaf.Issuer.CommonName
		facts.NotAfter = leaf.NotAfter
		facts.DaysUntilExpiry = int(time.Until(leaf.NotAfter).Hours() / 24)
		facts.SANs = leaf.DNSNames
	}
	return OK(facts)
}
