package wuprotocol

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultURL is the client web service endpoint that also accepts anonymous requests
	DefaultURL = "https://fe3.delivery.mp.microsoft.com/ClientWebService/client.asmx"
	// SecuredURL is the endpoint used to resolve download URLs
	SecuredURL = DefaultURL + "/secured"

	// MethodGetExtendedUpdateInfo2 is the remote operation that yields file URLs
	MethodGetExtendedUpdateInfo2 = "GetExtendedUpdateInfo2"

	// RequestValidity is the lifetime written into each security timestamp
	RequestValidity = 5 * time.Minute

	actionBase      = "http://www.microsoft.com/SoftwareDistribution/Server/ClientWebService/"
	timestampLayout = "2006-01-02T15:04:05.000Z"
)

// Namespace URIs used by the request envelope
const (
	NSSoap       = "http://www.w3.org/2003/05/soap-envelope"
	NSAddressing = "http://www.w3.org/2005/08/addressing"
	NSSecExt     = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"
	NSSecUtil    = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-utility-1.0.xsd"
	NSWUWS       = "http://schemas.microsoft.com/msus/2014/10/WindowsUpdateAuthorization"
	NSWUClient   = "http://www.microsoft.com/SoftwareDistribution/Server/ClientWebService"
)

// Namespaces lists the prefixes written on the envelope root
var Namespaces = []Namespace{
	{Prefix: "s", URI: NSSoap},
	{Prefix: "a", URI: NSAddressing},
	{Prefix: "o", URI: NSSecExt},
	{Prefix: "u", URI: NSSecUtil},
	{Prefix: "wuws", URI: NSWUWS},
	{Prefix: "wu", URI: NSWUClient},
}

// ErrTokenAlreadySet is returned when a second authorization token is set on one Protocol
var ErrTokenAlreadySet = errors.New("MSA user token already set")

// Protocol builds and parses the documents of the update service.
// It performs no I/O; the only state is the optional MSA user token.
type Protocol struct {
	mu           sync.RWMutex
	msaUserToken string

	now          func() time.Time
	newMessageID func() string
}

// New creates a Protocol without an authorization token
func New() *Protocol {
	return &Protocol{
		now: time.Now,
		newMessageID: func() string {
			return "urn:uuid:" + uuid.NewString()
		},
	}
}

// SetMSAUserToken attaches a pre-obtained user token to every subsequent
// request. It can be set once per Protocol.
func (p *Protocol) SetMSAUserToken(token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.msaUserToken != "" {
		return ErrTokenAlreadySet
	}
	p.msaUserToken = token
	return nil
}

// HasUserToken reports whether an authorization token is attached
func (p *Protocol) HasUserToken() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.msaUserToken != ""
}

// DownloadURL returns the endpoint that download resolution is posted to
func (p *Protocol) DownloadURL() string {
	return SecuredURL
}

func (p *Protocol) token() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.msaUserToken
}
