package emailsvc

import (
	"fmt"
	"log"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
)

var (
	SentMessages = make([]core.EmailMessage, 0)
	mu           sync.Mutex
)

// consoleService dumps outgoing mail to the process log instead of a
// provider. Used in DEV and TEST.
type consoleService struct {
	from          mail.Address
	subjPrefix    string
	disableOutput bool
}

var _ core.EmailService = (*consoleService)(nil)

func NewConsoleService() core.EmailService {
	return &consoleService{
		from:       core.Conf.DefaultFromEmail,
		subjPrefix: "[" + core.Conf.AppName + "] ",
	}
}

func (svc consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go svc.sendMessage(msg)
	}
}

func (svc consoleService) sendMessage(msg *core.EmailMessage) {
	if err := msg.Render(); err != nil {
		log.Printf("%+v", errors.Wrap(err, "rendering email"))
		return
	}
	if !msg.HasRecipients() || !(msg.HasContent() || msg.HasAttachments()) {
		return
	}
	svc.dump(*msg)
	mu.Lock()
	SentMessages = append(SentMessages, *msg)
	mu.Unlock()
}

// dump writes a readable rendition of the message, one header per line
// followed by the text body and an attachment inventory.
func (svc consoleService) dump(msg core.EmailMessage) {
	if svc.disableOutput {
		return
	}

	out := new(strings.Builder)
	fmt.Fprintf(out, "From: %s\r\n", svc.from.String())
	fmt.Fprintf(out, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(out, "Subject: %s\r\n", svc.subjPrefix+msg.Subject)
	fmt.Fprintf(out, "To: %s\r\n", joinAddresses(msg.To))
	if len(msg.Cc) > 0 {
		fmt.Fprintf(out, "CC: %s\r\n", joinAddresses(msg.Cc))
	}
	if len(msg.Bcc) > 0 {
		fmt.Fprintf(out, "BCC: %s\r\n", joinAddresses(msg.Bcc))
	}
	fmt.Fprint(out, "\r\n")
	fmt.Fprintf(out, "%s\r\n", msg.TextContent)
	if msg.HTMLContent != "" {
		fmt.Fprintf(out, "\r\n[text/html alternative: %d bytes]\r\n", len(msg.HTMLContent))
	}
	for _, at := range msg.Attachments {
		fmt.Fprintf(out, "[attachment: %s (%s)]\r\n", at.Filename, at.ContentType)
	}
	log.Println(out.String())
}

func joinAddresses(addrs []mail.Address) string {
	strs := make([]string, 0, len(addrs))
	for _, a := range addrs {
		strs = append(strs, a.String())
	}
	return strings.Join(strs, ", ")
}

// consoleServiceMock sends synchronously and records without printing, so
// tests can assert on SentMessages deterministically.
type consoleServiceMock struct {
	consoleService
}

func NewConsoleServiceMock() core.EmailService {
	return &consoleServiceMock{
		consoleService: consoleService{
			from:          core.Conf.DefaultFromEmail,
			subjPrefix:    "[" + core.Conf.AppName + "] ",
			disableOutput: true,
		},
	}
}

func (svc *consoleServiceMock) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		svc.sendMessage(msg)
	}
}
