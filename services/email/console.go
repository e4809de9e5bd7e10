package emailsvc

import (
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"github.com/trezcool/duka/core"
)

var (
	// SentMessages collects messages in test mode for assertions.
	SentMessages = make([]core.EmailMessage, 0)
	mu           sync.Mutex
)

type consoleService struct {
	defaultFromEmail mail.Address
	subjPrefix       string
	testMode         bool
}

var _ core.EmailService = (*consoleService)(nil)

func NewConsoleService(conf *core.Config) core.EmailService {
	return &consoleService{
		defaultFromEmail: conf.DefaultFromEmail,
		subjPrefix:       "[" + conf.AppName + "] ",
		testMode:         conf.TestMode,
	}
}

func (svc consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go svc.sendMessage(msg)
	}
}

func (svc consoleService) sendMessage(msg *core.EmailMessage) {
	if !(msg.HasRecipients() && msg.HasContent()) {
		return
	}

	if svc.testMode {
		mu.Lock()
		SentMessages = append(SentMessages, *msg)
		mu.Unlock()
		return
	}

	tos := make([]string, 0, len(msg.To))
	for _, to := range msg.To {
		tos = append(tos, to.String())
	}
	fmt.Printf(
		"From: %s\nTo: %s\nSubject: %s\n\n%s\n",
		svc.defaultFromEmail.String(), strings.Join(tos, ", "), svc.subjPrefix+msg.Subject, msg.BodyStr,
	)
}
