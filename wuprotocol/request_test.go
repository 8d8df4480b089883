package wuprotocol

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type parsedEnvelope struct {
	XMLName xml.Name `xml:"http://www.w3.org/2003/05/soap-envelope Envelope"`
	Header  struct {
		Action struct {
			MustUnderstand string `xml:"http://www.w3.org/2003/05/soap-envelope mustUnderstand,attr"`
			Value          string `xml:",chardata"`
		} `xml:"http://www.w3.org/2005/08/addressing Action"`
		MessageID string `xml:"http://www.w3.org/2005/08/addressing MessageID"`
		To        string `xml:"http://www.w3.org/2005/08/addressing To"`
		Security  struct {
			Timestamps []struct {
				Created string `xml:"http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-utility-1.0.xsd Created"`
				Expires string `xml:"http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-utility-1.0.xsd Expires"`
			} `xml:"http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-utility-1.0.xsd Timestamp"`
			Tickets struct {
				ID      string `xml:"http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-utility-1.0.xsd id,attr"`
				Tickets []struct {
					Name    string `xml:"Name,attr"`
					Version string `xml:"Version,attr"`
					Policy  string `xml:"Policy,attr"`
					User    string `xml:"User"`
					Text    string `xml:",chardata"`
				} `xml:"TicketType"`
			} `xml:"http://schemas.microsoft.com/msus/2014/10/WindowsUpdateAuthorization WindowsUpdateTicketsToken"`
		} `xml:"http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd Security"`
	} `xml:"http://www.w3.org/2003/05/soap-envelope Header"`
	Body struct {
		Info struct {
			UpdateID         string `xml:"http://www.microsoft.com/SoftwareDistribution/Server/ClientWebService updateIDs>UpdateIdentity>UpdateID"`
			RevisionNumber   string `xml:"http://www.microsoft.com/SoftwareDistribution/Server/ClientWebService updateIDs>UpdateIdentity>RevisionNumber"`
			InfoType         string `xml:"http://www.microsoft.com/SoftwareDistribution/Server/ClientWebService infoTypes>XmlUpdateFragmentType"`
			DeviceAttributes string `xml:"http://www.microsoft.com/SoftwareDistribution/Server/ClientWebService deviceAttributes"`
		} `xml:"http://www.microsoft.com/SoftwareDistribution/Server/ClientWebService GetExtendedUpdateInfo2"`
	} `xml:"http://www.w3.org/2003/05/soap-envelope Body"`
}

func parseEnvelope(t *testing.T, doc string) parsedEnvelope {
	t.Helper()
	var env parsedEnvelope
	require.NoError(t, xml.Unmarshal([]byte(doc), &env))
	return env
}

func fixedProtocol(now time.Time) *Protocol {
	p := New()
	p.now = func() time.Time { return now }
	return p
}

func TestBuildDownloadRequest_Body(t *testing.T) {
	p := New()
	env := parseEnvelope(t, p.BuildDownloadRequest("00000000-0000-0000-0000-000000000001", "1"))

	assert.Equal(t, "00000000-0000-0000-0000-000000000001", env.Body.Info.UpdateID)
	assert.Equal(t, "1", env.Body.Info.RevisionNumber)
	assert.Equal(t, InfoTypeFileURL, env.Body.Info.InfoType)
	assert.Equal(t, DeviceAttributes, env.Body.Info.DeviceAttributes)
}

func TestBuildDownloadRequest_Header(t *testing.T) {
	p := New()
	env := parseEnvelope(t, p.BuildDownloadRequest("id", "1"))

	assert.Equal(t, actionBase+MethodGetExtendedUpdateInfo2, env.Header.Action.Value)
	assert.Equal(t, "1", env.Header.Action.MustUnderstand)
	assert.Equal(t, SecuredURL, env.Header.To)
	assert.True(t, strings.HasPrefix(env.Header.MessageID, "urn:uuid:"), "message id %q", env.Header.MessageID)
}

func TestBuildDownloadRequest_TimestampWindow(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 30, 15, 250*int(time.Millisecond), time.UTC)
	p := fixedProtocol(now)
	env := parseEnvelope(t, p.BuildDownloadRequest("id", "1"))

	require.Len(t, env.Header.Security.Timestamps, 1)
	ts := env.Header.Security.Timestamps[0]

	created, err := time.Parse(time.RFC3339Nano, ts.Created)
	require.NoError(t, err)
	expires, err := time.Parse(time.RFC3339Nano, ts.Expires)
	require.NoError(t, err)

	assert.True(t, created.Equal(now))
	assert.Equal(t, 5*time.Minute, expires.Sub(created))
}

func TestBuildDownloadRequest_TimestampIsFreshPerRequest(t *testing.T) {
	current := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	p := New()
	p.now = func() time.Time { return current }

	first := parseEnvelope(t, p.BuildDownloadRequest("id", "1"))
	current = current.Add(time.Hour)
	second := parseEnvelope(t, p.BuildDownloadRequest("id", "1"))

	assert.NotEqual(t, first.Header.Security.Timestamps[0].Created, second.Header.Security.Timestamps[0].Created)
}

func TestBuildDownloadRequest_UniqueMessageIDs(t *testing.T) {
	p := New()
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		env := parseEnvelope(t, p.BuildDownloadRequest("id", "1"))
		require.False(t, seen[env.Header.MessageID], "duplicate message id %s", env.Header.MessageID)
		seen[env.Header.MessageID] = true
	}
}

func TestBuildDownloadRequest_AnonymousTickets(t *testing.T) {
	p := New()
	env := parseEnvelope(t, p.BuildDownloadRequest("id", "1"))

	tickets := env.Header.Security.Tickets
	assert.Equal(t, "ClientMSA", tickets.ID)
	require.Len(t, tickets.Tickets, 1)
	assert.Equal(t, TicketAAD, tickets.Tickets[0].Name)
	assert.Equal(t, "1.0", tickets.Tickets[0].Version)
	assert.Equal(t, "MBI_SSL", tickets.Tickets[0].Policy)
	assert.Empty(t, tickets.Tickets[0].Text)
}

func TestBuildDownloadRequest_UserTicket(t *testing.T) {
	p := New()
	require.NoError(t, p.SetMSAUserToken("t=secret&p="))

	doc := p.BuildDownloadRequest("id", "1")
	env := parseEnvelope(t, doc)

	tickets := env.Header.Security.Tickets.Tickets
	require.Len(t, tickets, 2)
	assert.Equal(t, TicketMSA, tickets[0].Name)
	assert.Equal(t, "t=secret&p=", tickets[0].User)
	assert.Equal(t, TicketAAD, tickets[1].Name)
	assert.Contains(t, doc, "t=secret&amp;p=")
}

func TestSetMSAUserToken_OnlyOnce(t *testing.T) {
	p := New()
	assert.False(t, p.HasUserToken())
	require.NoError(t, p.SetMSAUserToken("first"))
	assert.ErrorIs(t, p.SetMSAUserToken("second"), ErrTokenAlreadySet)
	assert.True(t, p.HasUserToken())
	assert.Equal(t, "first", p.token())
}

func TestBuildDownloadRequest_GarbageInputStillWellFormed(t *testing.T) {
	p := New()
	inputs := []string{"", "<not-xml>", "a&b\"c'", "\x00\xff"}
	for _, in := range inputs {
		t.Run(fmt.Sprintf("%q", in), func(t *testing.T) {
			doc := p.BuildDownloadRequest(in, in)
			decoder := xml.NewDecoder(strings.NewReader(doc))
			for {
				_, err := decoder.Token()
				if err != nil {
					assert.ErrorIs(t, err, io.EOF)
					break
				}
			}
		})
	}
}

func TestElementSerialize_UnknownNamespaceGetsGeneratedPrefix(t *testing.T) {
	root := NewElement("urn:known", "root")
	root.AddChild("urn:other", "child").SetAttr("urn:other", "flag", "yes").SetText("x")

	out := root.Serialize([]Namespace{{Prefix: "k", URI: "urn:known"}})

	assert.Equal(t, `<k:root xmlns:k="urn:known" xmlns:ns1="urn:other"><ns1:child ns1:flag="yes">x</ns1:child></k:root>`, out)
}
