package main

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/trezcool/duka/core"
	"github.com/trezcool/duka/core/stats"
)

// report emails a plain text traffic summary to the given address.
func (cli *commandLine) report(email string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	sessions := stats.NewSessionStore(cli.conf.SessionTTL)
	statsSvc := stats.NewService(cli.stsRepo, cli.visRepo, sessions)

	total, err := cli.visRepo.CountVisitors(ctx)
	if err != nil {
		return err
	}
	retention, err := statsSvc.RetentionRate(ctx)
	if err != nil {
		return err
	}
	counts, err := cli.visRepo.CountryCounts(ctx)
	if err != nil {
		return err
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Traffic summary as of %s\n\n", time.Now().Format(time.RFC1123))
	fmt.Fprintf(&body, "Total visitors: %d\n", total)
	fmt.Fprintf(&body, "Retention rate: %.1f%%\n\n", retention)
	fmt.Fprintln(&body, "Visits by country:")
	for _, c := range counts {
		fmt.Fprintf(&body, "  %s: %d\n", c.ID, c.Value)
	}

	cli.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Address: email}},
		Subject: fmt.Sprintf("[%s] Traffic summary", cli.conf.AppName),
		BodyStr: body.String(),
	})
	fmt.Printf("report sent to %s\n", email)
	return nil
}
