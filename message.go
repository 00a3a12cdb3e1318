package email

import (
	"bytes"
	"errors"
	htpl "html/template"
	"io/ioutil"
	"mime"
	"path/filepath"
	"strconv"
	"sync"
	ttpl "text/template"
	"time"

	"github.com/agext/uuid"
)

// CTE represents a "Content-Transfer-Encoding" method identifier.
type CTE byte

const (
	// AutoCTE leaves it up to the package to determine CTE
	AutoCTE CTE = iota
	// QuotedPrintable indicates "quoted-printable" CTE
	QuotedPrintable
	// Base64 indicates "base64" CTE
	Base64
	// UUEncode indicates legacy "x-uuencode" CTE, offered for attachments
	// destined for clients that predate MIME base64.
	UUEncode
)

var (
	now     = time.Now
	newUUID = func() []byte { return []byte(uuid.New().Hex()) }
)

// Message represents all the information necessary for composing an email message with optional
// external data, and sending it via a Sender.
type Message struct {
	sync.RWMutex
	domain        []byte
	subject       []byte
	subjectTplSrc string
	subjectTpl    *ttpl.Template
	sender        *Sender
	from, replyTo *Address
	to, cc, bcc   addrList
	parts         []*part
	text, html    *part
	attachments   []*attachment
	errors        []error
	prepared      bool
}

// Domain sets the domain portion of the generated message Id.
//
// If not specified, the domain is extracted from the sender email address - which is
// the right choice for most applications.
func (m *Message) Domain(domain string) *Message {
	m.Lock()
	defer m.Unlock()
	m.domain = []byte(domain)
	return m
}

func (m *Message) setSender(s *Sender) *Message {
	m.Lock()
	defer m.Unlock()
	m.sender = s
	return m
}

// Subject sets the text for the subject of the message.
func (m *Message) Subject(subject string) *Message {
	m.Lock()
	defer m.Unlock()
	m.subject = []byte(subject)
	return m
}

// parseTemplate parses a text/template source, recording a composition
// error on failure. An empty source yields a nil template.
func (m *Message) parseTemplate(kind, tpl string) (*ttpl.Template, bool) {
	if tpl == "" {
		return nil, true
	}
	t, err := ttpl.New("").Parse(tpl)
	if err != nil {
		m.errors = append(m.errors, errors.New("invalid "+kind+" template:\n"+tpl+"\nerror: "+err.Error()))
		return nil, false
	}
	return t, true
}

// parseHtmlTemplate is parseTemplate for html/template sources.
func (m *Message) parseHtmlTemplate(kind, tpl string) (*htpl.Template, bool) {
	if tpl == "" {
		return nil, true
	}
	t, err := htpl.New("").Parse(tpl)
	if err != nil {
		m.errors = append(m.errors, errors.New("invalid "+kind+" template:\n"+tpl+"\nerror: "+err.Error()))
		return nil, false
	}
	return t, true
}

// SubjectTemplate sets a template for the subject of the message.
func (m *Message) SubjectTemplate(tpl string) *Message {
	t, ok := m.parseTemplate("subject", tpl)
	if !ok {
		return m
	}
	m.Lock()
	defer m.Unlock()
	m.subjectTplSrc = tpl
	m.subjectTpl = t
	return m
}

// validAddr passes addr through, degrading to nil when it fails the
// SeemsValidAddr check.
func validAddr(addr *Address) *Address {
	if addr != nil && !SeemsValidAddr(addr.Addr) {
		return nil
	}
	return addr
}

// From sets the From: email address.
func (m *Message) From(addr *Address) *Message {
	addr = validAddr(addr)
	m.Lock()
	defer m.Unlock()
	m.from = addr
	return m
}

// validAddrList keeps the entries of addr that pass the SeemsValidAddr
// check, silently dropping the rest.
func validAddrList(addr []*Address) addrList {
	lst := make(addrList, 0, len(addr))
	for _, a := range addr {
		if a != nil && SeemsValidAddr(a.Addr) {
			lst = append(lst, a)
		}
	}
	return lst
}

// To sets the To: email address(es). Last call overrides any previous calls, replacing rather than
// adding to the list.
func (m *Message) To(addr ...*Address) *Message {
	lst := validAddrList(addr)
	m.Lock()
	defer m.Unlock()
	m.to = lst
	return m
}

// Cc sets the (optional) Cc: email addresses. Last call overrides any previous calls, replacing rather than
// adding to the list.
func (m *Message) Cc(addr ...*Address) *Message {
	lst := validAddrList(addr)
	m.Lock()
	defer m.Unlock()
	m.cc = lst
	return m
}

// Bcc sets the (optional) Bcc: email addresses. Last call overrides any previous calls, replacing rather than
// adding to the list.
func (m *Message) Bcc(addr ...*Address) *Message {
	lst := validAddrList(addr)
	m.Lock()
	defer m.Unlock()
	m.bcc = lst
	return m
}

// ReplyTo sets the (optional) Reply-To: email address. A `*Address` argument is expected for
// consistency, although only the email address part is used.
func (m *Message) ReplyTo(addr *Address) *Message {
	addr = validAddr(addr)
	m.Lock()
	defer m.Unlock()
	m.replyTo = addr
	return m
}

// Part adds an alternative part to the message. For a plain-text and/or an HTML body use the
// convenience methods: Text, TextTemplate, Html or HtmlTemplate.
func (m *Message) Part(ctype string, cte CTE, bytes []byte, related ...Related) *Message {
	m.Lock()
	defer m.Unlock()
	m.parts = append(m.parts, &part{
		ctype:   ctype,
		cte:     cte,
		bytes:   bytes,
		related: related,
	})
	m.prepared = false // related may include files
	return m
}

// setText replaces the plain-text body part, creating it on first use.
func (m *Message) setText(p part) *Message {
	m.Lock()
	defer m.Unlock()
	if m.text == nil {
		m.text = &part{}
		m.parts = append(m.parts, m.text)
	}
	*(m.text) = p
	return m
}

// setHtml replaces the HTML body part, creating it on first use.
func (m *Message) setHtml(p part) *Message {
	m.Lock()
	defer m.Unlock()
	if m.html == nil {
		m.html = &part{}
		m.parts = append(m.parts, m.html)
	}
	*(m.html) = p
	m.prepared = false // related may include files
	return m
}

// Text sets the plain-text version of the message body to the provided content.
func (m *Message) Text(text string) *Message {
	return m.setText(part{
		ctype: "text/plain; charset=utf-8",
		cte:   QuotedPrintable,
		bytes: []byte(text),
	})
}

// TextTemplate sets the plain-text version of the message body to the provided template.
func (m *Message) TextTemplate(tpl string) *Message {
	t, ok := m.parseTemplate("text", tpl)
	if !ok {
		return m
	}
	return m.setText(part{
		ctype:  "text/plain; charset=utf-8",
		cte:    QuotedPrintable,
		tplSrc: tpl,
		tpl:    t,
	})
}

// Html sets the HTML version of the message body to the provided content.
// Optionally, related objects can be specified for inclusion.
func (m *Message) Html(html string, related ...Related) *Message {
	return m.setHtml(part{
		ctype:   "text/html; charset=utf-8",
		cte:     QuotedPrintable,
		bytes:   []byte(html),
		related: related,
	})
}

// HtmlTemplate sets the HTML version of the message body to the provided template.
// Optionally, related objects can be specified for inclusion.
func (m *Message) HtmlTemplate(tpl string, related ...Related) *Message {
	t, ok := m.parseHtmlTemplate("html", tpl)
	if !ok {
		return m
	}
	return m.setHtml(part{
		ctype:      "text/html; charset=utf-8",
		cte:        QuotedPrintable,
		htmlTplSrc: tpl,
		htmlTpl:    t,
		related:    related,
	})
}

// addAttachment appends a to the attachment list. File-backed attachments
// flag the message for (re-)preparation.
func (m *Message) addAttachment(a *attachment) *Message {
	m.Lock()
	defer m.Unlock()
	m.attachments = append(m.attachments, a)
	if a.fileName != "" {
		m.prepared = false
	}
	return m
}

// Attach attaches the files provided as filesystem paths.
func (m *Message) Attach(file ...string) *Message {
	for _, fileName := range file {
		m.addAttachment(&attachment{fileName: fileName})
	}
	return m
}

// AttachFile attaches a file specified by its filesystem path, setting its name and type
// to the provided values.
func (m *Message) AttachFile(name, ctype, file string) *Message {
	return m.addAttachment(&attachment{
		name:     name,
		ctype:    ctype,
		fileName: file,
	})
}

// AttachObject creates an attachment with the name, type and data provided.
func (m *Message) AttachObject(name, ctype string, data []byte) *Message {
	return m.addAttachment(&attachment{
		name:  name,
		ctype: ctype,
		data:  data,
	})
}

// AttachObjectAs creates an attachment with the name, type and data provided,
// encoded with the given CTE instead of the default base64. UUEncode is
// useful only for legacy mail clients; AutoCTE and Base64 are equivalent for
// attachments, and QuotedPrintable is not applied to attachments: it also
// yields base64.
func (m *Message) AttachObjectAs(name, ctype string, data []byte, cte CTE) *Message {
	return m.addAttachment(&attachment{
		name:  name,
		ctype: ctype,
		data:  data,
		cte:   cte,
	})
}

func (m *Message) prepare(force bool) {
	if m.prepared && !force {
		return
	}
	allOk := true
	for _, p := range m.parts {
		for i := range p.related {
			r := &p.related[i]
			if r.fileName != "" && (force || len(r.data) == 0) {
				if file, err := ioutil.ReadFile(r.fileName); err == nil {
					r.data = file
				} else {
					m.errors = append(m.errors, errors.New("cannot read file: "+r.fileName+": "+err.Error()))
					allOk = false
				}
			}
		}
	}
	for _, a := range m.attachments {
		if err := a.load(force); err != nil {
			m.errors = append(m.errors, errors.New("cannot read file: "+a.fileName+": "+err.Error()))
			allOk = false
		}
	}
	m.prepared = allOk
}

// Prepare reads all the files referenced by the message at attachments or related items.
//
// If the message was already prepared and no new files have been added, it is no-op.
func (m *Message) Prepare() *Message {
	m.Lock()
	defer m.Unlock()
	m.prepare(false)
	return m
}

// PrepareFresh forces a new preparation of the message, even if there were no changes to the referred
// files since the previous one.
func (m *Message) PrepareFresh() *Message {
	m.Lock()
	defer m.Unlock()
	m.prepare(true)
	return m
}

// fromAddress picks the effective From address: the message's own, then the
// attached sender's, then the default sender's. Callers must hold the lock.
func (m *Message) fromAddress() *Address {
	switch {
	case m.from != nil:
		return m.from
	case m.sender != nil && m.sender.address != nil:
		return m.sender.address
	case defaultSender != nil && defaultSender.address != nil:
		return defaultSender.address
	}
	return nil
}

// Compose merges the `data` into the receiver's templates and creates the body of the SMTP message
// to be sent.
func (m *Message) Compose(data interface{}) []byte {
	m.Lock()
	defer m.Unlock()
	var (
		recpts []*Address
		buf    bytes.Buffer
	)
	from := m.fromAddress()
	if from == nil {
		m.errors = append(m.errors, errors.New("no From address"))
		return []byte{}
	}
	if m.subjectTpl != nil {
		buf.Reset()
		if err := m.subjectTpl.Execute(&buf, data); err != nil {
			m.errors = append(m.errors, errors.New("failed Execute on subject template: "+err.Error()))
		}
		m.subject = make([]byte, buf.Len())
		copy(m.subject, buf.Bytes())
	}
	for partNo, partData := range m.parts {
		if kind, err := partData.execute(&buf, data); err != nil {
			m.errors = append(m.errors, errors.New("failed Execute on part["+strconv.Itoa(partNo)+"] "+kind+": "+err.Error()))
		}
	}
	if len(m.parts) == 0 {
		m.errors = append(m.errors, errors.New("message has no parts"))
	}
	m.prepare(false)
	if len(m.errors) != 0 {
		return []byte{}
	}

	domain := m.domain
	if len(domain) == 0 {
		domain = []byte(from.Domain())
	}

	ts := []byte(now().In(time.UTC).Format(time.RFC1123Z))
	uid := newUUID()

	msg := newBuffer(4096)
	msg.Write("Message-ID: <", uid, '@', domain, ">\r\n")
	msg.Write("Date: ", ts, "\r\n")
	msg.Write("Subject: ", QEncodeIfNeeded(m.subject, 9), "\r\n")
	addr, _ := from.encode(6)
	msg.Write("From: ", addr, "\r\n")
	if m.replyTo != nil && m.replyTo.Addr != "" && m.replyTo.Addr != from.Addr {
		addr, _ = m.replyTo.encode(10)
		msg.Write("Reply-To: ", addr, "\r\n")
	}

	listAddrs := func(list []*Address, offset int) []byte {
		addrs := newBuffer(1024)
		for i, item := range list {
			if i > 0 {
				switch {
				case offset < 75:
					addrs.Write(", ")
					offset += 2
				case offset < 76:
					addrs.Write(",\r\n ")
					offset = 1
				default:
					addrs.Write("\r\n , ")
					offset = 3
				}
			}
			addr, offset = item.encode(offset)
			addrs.Write(addr)
		}
		return addrs.Bytes()
	}

	recpts = m.to
	if len(recpts) == 0 {
		recpts = []*Address{from}
	}
	msg.Write("To: ", listAddrs(recpts, 4), "\r\n")
	if len(m.cc) > 0 {
		msg.Write("Cc: ", listAddrs(m.cc, 4), "\r\n")
	}

	// Do not add BCC addresses into the message - they will show up at all recipients!

	msg.Write("MIME-Version: 1.0\r\n")

	if len(m.attachments) > 0 {
		msg.Write("Content-Type: multipart/mixed;\r\n\tboundary=B_m_", uid,
			"\r\n\r\n--B_m_", uid, "\r\n")
	}

	alt := m.html != nil || len(m.parts) > 1

	if alt {
		msg.Write("Content-Type: multipart/alternative;\r\n\tboundary=B_a_", uid, "\r\n")
	}

	if m.html != nil && m.text == nil {
		if alt {
			msg.Write("\r\n--B_a_", uid, "\r\n")
		}
		msg.Write("Content-Type: text/plain; charset=utf-8\r\nContent-Transfer-Encoding: quoted-printable\r\n\r\n",
			QuotedPrintableEncode([]byte(htmlToText(string(m.html.bytes)))), "\r\n")
	}
	for partNo, partData := range m.parts {
		if alt {
			msg.Write("\r\n--B_a_", uid, "\r\n")
		}
		partData.render(msg, strconv.Itoa(partNo), uid)
	}
	if alt {
		msg.Write("\r\n--B_a_", uid, "--\r\n")
	}

	for _, attData := range m.attachments {
		attData.render(msg, uid)
	}

	if len(m.attachments) > 0 {
		msg.Write("\r\n--B_m_", uid, "--\r\n")
	}

	return msg.Bytes()
}

// FromAddr returns the email address that the message would be sent from.
func (m *Message) FromAddr() string {
	m.RLock()
	defer m.RUnlock()
	if from := m.fromAddress(); from != nil {
		return from.Addr
	}
	return ""
}

// RecipientAddrs returns a list of email addresses with all the recipients for the message.
//
// It includes addresses from the To, CC and BCC fields.
func (m *Message) RecipientAddrs() []string {
	m.RLock()
	defer m.RUnlock()
	to := make([]string, 0, len(m.to)+len(m.cc)+len(m.bcc)+1)
	seen := map[string]struct{}{}
	if len(m.to) == 0 {
		addr := m.FromAddr()
		to = append(to, addr)
		seen[addr] = struct{}{}
	}
	for _, list := range []addrList{m.to, m.cc, m.bcc} {
		for _, val := range list {
			addr := val.Addr
			if _, s := seen[addr]; !s {
				to = append(to, addr)
				seen[addr] = struct{}{}
			}
		}
	}
	return to
}

// HasErrors checks if there are any errors associated with the receiver
func (m *Message) HasErrors() bool {
	m.RLock()
	defer m.RUnlock()
	return len(m.errors) > 0
}

// Errors returns the list of errors associated with the receiver, then resets the internal list.
func (m *Message) Errors() (errs []error) {
	m.Lock()
	defer m.Unlock()
	errs, m.errors = m.errors, nil
	return
}

// NewMessage creates a new Message, deep-copying from `msg`, if provided.
func NewMessage(msg *Message) *Message {
	if msg == nil {
		return &Message{prepared: true}
	}
	msg.RLock()
	defer msg.RUnlock()
	m := &Message{
		domain:        msg.domain,
		sender:        msg.sender,
		subject:       msg.subject,
		subjectTplSrc: msg.subjectTplSrc,
		from:          msg.from.Clone(),
		replyTo:       msg.replyTo.Clone(),
		to:            msg.to.Clone(),
		cc:            msg.cc.Clone(),
		bcc:           msg.bcc.Clone(),
		prepared:      msg.prepared,
	}
	if msg.subjectTplSrc != "" {
		// the template source was already parsed successfully once, so it is guaranteed to be valid
		m.subjectTpl, _ = ttpl.New("").Parse(msg.subjectTplSrc)
	}
	m.parts = make([]*part, len(msg.parts))
	for i, partData := range msg.parts {
		p := partData.clone()
		if msg.text == partData {
			m.text = p
		}
		if msg.html == partData {
			m.html = p
		}
		m.parts[i] = p
	}
	m.attachments = make([]*attachment, len(msg.attachments))
	for i, attData := range msg.attachments {
		m.attachments[i] = attData
		// do not copy attData.data, to save memory; it is never updated in place
	}
	return m
}

// QuickMessage creates a Message with the subject and the body provided. Alternative text and HTML
// body versions can be provided, in this order.
func QuickMessage(subject string, body ...string) *Message {
	msg := &Message{subject: []byte(subject), prepared: true}
	if len(body) > 0 {
		msg.Text(body[0])
	}
	if len(body) > 1 {
		msg.Html(body[1])
	}
	return msg
}

type part struct {
	ctype      string
	cte        CTE
	bytes      []byte
	tplSrc     string
	tpl        *ttpl.Template
	htmlTplSrc string
	htmlTpl    *htpl.Template
	related    []Related
}

// execute renders the part's template, if any, into its bytes, reusing buf
// as scratch space. kind names the template flavor for error reporting. A
// part with no template keeps its bytes untouched.
func (p *part) execute(buf *bytes.Buffer, data interface{}) (kind string, err error) {
	buf.Reset()
	switch {
	case p.tpl != nil:
		kind, err = "template", p.tpl.Execute(buf, data)
	case p.htmlTpl != nil:
		kind, err = "html template", p.htmlTpl.Execute(buf, data)
	default:
		return "", nil
	}
	p.bytes = make([]byte, buf.Len())
	copy(p.bytes, buf.Bytes())
	return kind, err
}

// clone deep-copies the part. Template sources were already parsed
// successfully once, so reparsing them cannot fail; related data slices are
// shared rather than copied, as they are never updated in place.
func (p *part) clone() *part {
	c := &part{
		ctype:      p.ctype,
		cte:        p.cte,
		tplSrc:     p.tplSrc,
		htmlTplSrc: p.htmlTplSrc,
	}
	if len(p.bytes) > 0 {
		c.bytes = make([]byte, len(p.bytes))
		copy(c.bytes, p.bytes)
	}
	if p.tplSrc != "" {
		c.tpl, _ = ttpl.New("").Parse(p.tplSrc)
	}
	if p.htmlTplSrc != "" {
		c.htmlTpl, _ = htpl.New("").Parse(p.htmlTplSrc)
	}
	if len(p.related) > 0 {
		c.related = make([]Related, len(p.related))
		copy(c.related, p.related)
	}
	return c
}

// render writes the part's headers and encoded body, wrapped in a
// multipart/related envelope when the part carries related objects.
// Related objects always travel base64-encoded; the part body itself
// follows its cte, defaulting to quoted-printable.
func (p *part) render(msg *buffer, pn string, uid []byte) {
	if len(p.related) > 0 {
		msg.Write("Content-Type: multipart/related;\r\n\tboundary=B_r_", pn, uid,
			"\r\n\r\n--B_r_", pn, uid, "\r\n")
		// ToDo: substitute the related Ids in content
	}
	switch p.cte {
	case Base64:
		msg.Write("Content-Type: ", p.ctype, "\r\nContent-Transfer-Encoding: base64\r\n\r\n")
		msg.writeBody(EncodingBase64, p.bytes)
	default:
		fallthrough
	case QuotedPrintable:
		msg.Write("Content-Type: ", p.ctype, "\r\nContent-Transfer-Encoding: quoted-printable\r\n\r\n",
			QuotedPrintableEncode(p.bytes), "\r\n")
	}
	for _, relData := range p.related {
		msg.Write("\r\n--B_r_", pn, uid, "\r\n")
		msg.Write("Content-Type: ", relData.ctype, "\r\nContent-Transfer-Encoding: base64\r\n\r\n")
		msg.writeBody(EncodingBase64, relData.data)
	}
	if len(p.related) > 0 {
		msg.Write("\r\n--B_r_", pn, uid, "--\r\n")
	}
}

// Related represents a multipart/related item.
type Related struct {
	id       string
	ctype    string
	fileName string
	data     []byte
}

// RelatedFile creates a Related structure from the provided file information.
func RelatedFile(id, ctype, file string) Related {
	return Related{
		id:       id,
		ctype:    ctype,
		fileName: file,
	}
}

// RelatedObject creates a Related structure from the provided data.
func RelatedObject(id, ctype string, data []byte) Related {
	return Related{
		id:    id,
		ctype: ctype,
		data:  data,
	}
}

type attachment struct {
	name     string
	ctype    string
	fileName string
	data     []byte
	cte      CTE
}

// load reads the attachment's backing file, deriving a display name and a
// content type from the file name when not already set. Already-loaded data
// is kept unless force is set; an attachment with no backing file is
// left alone.
func (a *attachment) load(force bool) error {
	if a.fileName == "" || (!force && len(a.data) > 0) {
		return nil
	}
	file, err := ioutil.ReadFile(a.fileName)
	if err != nil {
		return err
	}
	a.data = file
	if a.name == "" {
		a.name = filepath.Base(a.fileName)
	}
	if a.ctype == "" {
		a.ctype = mime.TypeByExtension(filepath.Ext(a.fileName))
	}
	return nil
}

// render writes one attachment of a multipart/mixed message, emitting the
// body through the content-transfer-encoding the attachment asks for.
func (a *attachment) render(msg *buffer, uid []byte) {
	msg.Write("\r\n--B_m_", uid, "\r\n")
	msg.Write("Content-Type: ", a.ctype,
		"\r\nContent-Disposition: attachment;\r\n\tfilename=\"", a.name, "\"\r\n")
	switch a.cte {
	case UUEncode:
		msg.Write("Content-Transfer-Encoding: x-uuencode\r\n\r\n")
		msg.writeBody(EncodingUUEncode, a.data)
		msg.Write("\r\n")
	default:
		msg.Write("Content-Transfer-Encoding: base64\r\n\r\n")
		msg.writeBody(EncodingBase64, a.data)
	}
}
