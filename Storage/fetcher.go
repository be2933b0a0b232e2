package Storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/zeebo/xxh3"
)

// MaxPhotoBytes caps uploads and downloads of a single photo.
const MaxPhotoBytes = 10 << 20

// ErrBlockedAddress is returned for photo URLs that resolve to loopback,
// private, link-local or otherwise non-public addresses.
var ErrBlockedAddress = errors.New("photo url resolves to a non-public address")

// Fetcher downloads referenced photos into ledger temp files.
type Fetcher struct {
	store  PhotoStore
	ledger *Ledger
	client *http.Client
}

// NewFetcher resolves file ids through store and plain URLs over HTTP.
func NewFetcher(store PhotoStore, ledger *Ledger) *Fetcher {
	return &Fetcher{
		store:  store,
		ledger: ledger,
		client: publicClient(),
	}
}

// publicClient only dials public addresses. The check runs on the resolved
// address of every connection, redirects included.
func publicClient() *http.Client {
	dialer := &net.Dialer{Timeout: 10 * time.Second, Control: publicOnly}
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

func publicOnly(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast() {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	return nil
}

func (f *Fetcher) open(ctx context.Context, ref string) (io.ReadCloser, error) {
	r := ParseReference(ref)
	switch {
	case r.FileID != "":
		body, _, err := f.store.Open(ctx, r.FileID)
		return body, err
	case r.URL != "":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("GET %s: %s", r.URL, resp.Status)
		}
		return resp.Body, nil
	default:
		return nil, fmt.Errorf("unrecognized photo reference %q", ref)
	}
}

// Fetch downloads ref to a temp file and returns its path. The caller must
// hand the path back to Ledger.Release.
func (f *Fetcher) Fetch(ctx context.Context, ref string) (string, error) {
	body, err := f.open(ctx, ref)
	if err != nil {
		return "", err
	}
	defer body.Close()

	pattern := fmt.Sprintf("photo-%016x-*", xxh3.HashString(ref))
	out, err := f.ledger.Create(pattern, "photo")
	if err != nil {
		return "", err
	}
	n, err := io.Copy(out, io.LimitReader(body, MaxPhotoBytes+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > MaxPhotoBytes {
		err = fmt.Errorf("photo %s exceeds %d bytes", ref, MaxPhotoBytes)
	}
	if err != nil {
		f.ledger.Release(out.Name())
		return "", err
	}
	return out.Name(), nil
}
