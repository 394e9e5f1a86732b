package monitors

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"math"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/uptimer-dev/uptimer/internal/types"
)

const (
	sslTimeout    = 5 * time.Second
	certTimeValue = "Jan _2 15:04:05 2006 GMT"
)

var (
	ErrInsecureURL  = errors.New("host is not secure and invalid")
	ErrUnauthorized = errors.New("certificate is not authorized")
)

// certificateChecker inspects TLS certificates. A nil roots pool means the
// system trust store.
type certificateChecker struct {
	roots *x509.CertPool
	now   func() time.Time
}

var defaultChecker = certificateChecker{now: time.Now}

// CheckCertificate connects to an https:// URL without verifying the peer at
// the transport level, then verifies the presented chain itself so that the
// certificate details are available even when it is not trusted. Unauthorized
// certificates are returned together with ErrUnauthorized.
func CheckCertificate(ctx context.Context, rawURL string) (*types.SSLInfo, error) {
	return defaultChecker.check(ctx, rawURL)
}

func (c certificateChecker) check(ctx context.Context, rawURL string) (*types.SSLInfo, error) {
	if !strings.HasPrefix(rawURL, "https://") {
		return nil, fmt.Errorf("%s: %w", rawURL, ErrInsecureURL)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %s: %w", rawURL, err)
	}

	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "443"
	}

	ctx, cancel := context.WithTimeout(ctx, sslTimeout)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: sslTimeout},
		Config: &tls.Config{
			ServerName:         host,
			InsecureSkipVerify: true,
		},
	}

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return nil, fmt.Errorf("tls handshake with %s failed: %w", host, err)
	}
	defer conn.Close()

	certs := conn.(*tls.Conn).ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return nil, fmt.Errorf("%s presented no certificate", host)
	}

	leaf := certs[0]

	intermediates := x509.NewCertPool()
	for _, cert := range certs[1:] {
		intermediates.AddCert(cert)
	}

	_, verifyErr := leaf.Verify(x509.VerifyOptions{
		DNSName:       host,
		Roots:         c.roots,
		Intermediates: intermediates,
		CurrentTime:   c.now(),
	})
	authorized := verifyErr == nil

	daysRemaining := DaysRemaining(c.now(), leaf.NotAfter)
	classification := Classify(authorized, daysRemaining)

	info := &types.SSLInfo{
		Host:     host,
		Type:     classification,
		ValidFor: validFor(leaf),
		Subject: types.SSLSubject{
			Org:        first(leaf.Subject.Organization),
			CommonName: leaf.Subject.CommonName,
			SANs:       subjectAltNames(leaf),
		},
		Issuer: types.SSLIssuer{
			Org:        first(leaf.Issuer.Organization),
			CommonName: leaf.Issuer.CommonName,
			Country:    first(leaf.Issuer.Country),
		},
		Info: types.SSLInfoDetails{
			ValidFrom:       leaf.NotBefore.UTC().Format(certTimeValue),
			ValidTo:         leaf.NotAfter.UTC().Format(certTimeValue),
			DaysLeft:        daysRemaining,
			BackgroundClass: backgroundClass(classification),
			ExpiresIn:       humanize.RelTime(leaf.NotAfter, c.now(), "ago", "from now"),
		},
	}

	if !authorized {
		info.Reason = verifyErr.Error()
		return info, fmt.Errorf("%w: %v", ErrUnauthorized, verifyErr)
	}

	return info, nil
}

// Classify maps a certificate verdict to its classification. Unauthorized
// certificates are always in danger.
func Classify(authorized bool, daysRemaining int) string {
	switch {
	case !authorized:
		return types.SSLDanger
	case daysRemaining <= 30:
		return types.SSLDanger
	case daysRemaining <= 59:
		return types.SSLExpiringSoon
	default:
		return types.SSLSuccess
	}
}

// DaysBetween returns the whole number of days between two instants.
func DaysBetween(start, end time.Time) int {
	return int(math.Round(math.Abs(end.Sub(start).Hours()) / 24))
}

// DaysRemaining is DaysBetween, negative when end already passed.
func DaysRemaining(now, end time.Time) int {
	days := DaysBetween(now, end)
	if end.Before(now) {
		return -days
	}
	return days
}

func backgroundClass(classification string) string {
	switch classification {
	case types.SSLSuccess:
		return "success"
	case types.SSLExpiringSoon:
		return "warning"
	default:
		return "danger"
	}
}

func validFor(cert *x509.Certificate) []string {
	names := make([]string, 0, len(cert.DNSNames)+len(cert.IPAddresses))
	names = append(names, cert.DNSNames...)
	for _, ip := range cert.IPAddresses {
		names = append(names, ip.String())
	}
	return names
}

func subjectAltNames(cert *x509.Certificate) string {
	sans := make([]string, 0, len(cert.DNSNames)+len(cert.IPAddresses))
	for _, name := range cert.DNSNames {
		sans = append(sans, "DNS:"+name)
	}
	for _, ip := range cert.IPAddresses {
		sans = append(sans, "IP Address:"+ip.String())
	}
	return strings.Join(sans, ", ")
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
