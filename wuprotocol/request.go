package wuprotocol

import "time"

// Ticket schemes written into the authorization tickets block
const (
	ticketVersion = "1.0"
	ticketPolicy  = "MBI_SSL"

	TicketMSA = "MSA"
	TicketAAD = "AAD"

	// InfoTypeFileURL restricts the extended info to file locations
	InfoTypeFileURL = "FileUrl"
)

// BuildDownloadRequest returns the serialized GetExtendedUpdateInfo2 envelope
// for one update identity. Inputs are not validated; the service rejects
// identities it does not know.
func (p *Protocol) BuildDownloadRequest(updateIdentity, revisionNumber string) string {
	envelope := NewElement(NSSoap, "Envelope")
	envelope.Append(p.buildHeader(p.DownloadURL(), MethodGetExtendedUpdateInfo2))

	body := envelope.AddChild(NSSoap, "Body")
	info := body.AddChild(NSWUClient, MethodGetExtendedUpdateInfo2)

	identity := info.AddChild(NSWUClient, "updateIDs").AddChild(NSWUClient, "UpdateIdentity")
	identity.AddChild(NSWUClient, "UpdateID").SetText(updateIdentity)
	identity.AddChild(NSWUClient, "RevisionNumber").SetText(revisionNumber)

	info.AddChild(NSWUClient, "infoTypes").
		AddChild(NSWUClient, "XmlUpdateFragmentType").
		SetText(InfoTypeFileURL)

	info.AddChild(NSWUClient, "deviceAttributes").SetText(DeviceAttributes)

	return envelope.Serialize(Namespaces)
}

// buildHeader creates the addressing and security header. The timestamp is
// taken at call time and never reused.
func (p *Protocol) buildHeader(url, method string) *Element {
	created := p.now().UTC()
	expires := created.Add(RequestValidity)

	header := NewElement(NSSoap, "Header")

	header.AddChild(NSAddressing, "Action").
		SetAttr(NSSoap, "mustUnderstand", "1").
		SetText(actionBase + method)
	header.AddChild(NSAddressing, "MessageID").SetText(p.newMessageID())
	header.AddChild(NSAddressing, "To").
		SetAttr(NSSoap, "mustUnderstand", "1").
		SetText(url)

	security := header.AddChild(NSSecExt, "Security").
		SetAttr(NSSoap, "mustUnderstand", "1")

	timestamp := security.AddChild(NSSecUtil, "Timestamp")
	timestamp.AddChild(NSSecUtil, "Created").SetText(formatTimestamp(created))
	timestamp.AddChild(NSSecUtil, "Expires").SetText(formatTimestamp(expires))

	security.Append(p.buildTickets())

	return header
}

// buildTickets creates the WindowsUpdateTicketsToken block. The AAD entry is
// always present and empty; the MSA entry only when a token is set.
func (p *Protocol) buildTickets() *Element {
	tickets := NewElement(NSWUWS, "WindowsUpdateTicketsToken").
		SetAttr(NSSecUtil, "id", "ClientMSA")

	if token := p.token(); token != "" {
		newTicket(tickets, TicketMSA).AddChild("", "User").SetText(token)
	}
	newTicket(tickets, TicketAAD)

	return tickets
}

func newTicket(parent *Element, scheme string) *Element {
	return parent.AddChild("", "TicketType").
		SetAttr("", "Name", scheme).
		SetAttr("", "Version", ticketVersion).
		SetAttr("", "Policy", ticketPolicy)
}

func formatTimestamp(t time.Time) string {
	return t.Format(timestampLayout)
}
