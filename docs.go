/*
Package email composes and sends MIME email messages, and exposes the
incremental content-transfer-encoding codecs the composition is built on.

The codec surface is CTEState: one value per stream and direction, created
with NewEncoder or NewDecoder for a given Encoding (base64,
quoted-printable, x-uuencode, or one of the identity encodings). Step
consumes one chunk of input at a time and Close drains whatever carry is
left; Outlen bounds the output either call may write, so callers can size
buffers up front and the codecs never allocate. EncodeAll and DecodeAll
wrap the Step/Close pair for payloads already held in memory, and
DecodeContentTransferEncoding pairs DecodeAll with ParseEncoding for the
receiving side, taking the header value as it arrives on the wire.

The composition surface is Sender and Message. An application needs one
(and usually only one) Sender, holding SMTP account information plus a
sender Address. A Message collects addresses, body parts and attachments;
parts are often templates filled in at send time, so it is convenient to
define base messages on program initialization and clone them for
fine-tuning and send-out when needed. Base64 bodies and x-uuencode
attachments (on request, for pre-MIME clients) are encoded through the
codecs above; quoted-printable text bodies go through the one-shot
QuotedPrintableEncode.

A minimal send path, with From: and To: left to default to the sender
address (convenient for system messaging):

	package main

	import (
		"log"

		"github.com/agext/mimecte"
	)

	var (
		host               = "smtp.example.com"
		user               = "username"
		pass               = "password"
		name               = "Application mail"
		addr               = "app@example.com"
		sender             *email.Sender
		contactFormMessage *email.Message
	)

	func main() {
		var err error
		sender, err = email.NewSender(host, user, pass, name, addr)
		if err != nil {
			log.Fatalln("invalid sender configuration: " + err.Error())
		}

		// a base message; clone and customize per send
		contactFormMessage = email.NewMessage(nil).
			SubjectTemplate("Contact form message from {{.first}} {{.last}}").
			TextTemplate(`
	First Name:   {{.first}}
	Last Name:    {{.last}}
	Phone:        {{.phone}}
	Email:        {{.email}}
	`)
	}

	func sendContact(data map[string]interface{}) error {
		msg := email.NewMessage(contactFormMessage)

		// adapt the clone as needed, then compose and send with the data
		err := sender.Send(msg, data)
		if err != nil {
			log.Println(err, msg.Errors())
		}
		return err
	}
*/
package email
