package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/proptalk/internal/chat"
	"github.com/zulandar/proptalk/internal/conversation"
)

func newAskCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the assistant one question and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, configPath, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "proptalk.yaml", "path to proptalk config file")
	return cmd
}

func runAsk(cmd *cobra.Command, configPath, question string) error {
	if strings.TrimSpace(question) == "" {
		return errors.New("question is required")
	}
	a, err := newApp(appOpts{configPath: configPath})
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := a.newClient(nil)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	if err := client.Start(ctx); err != nil {
		return err
	}
	defer client.Close()

	if err := client.Send(ctx, question); err != nil {
		return err
	}
	client.Wait()

	msgs := client.Messages()
	last := msgs[len(msgs)-1]
	if last.Role != conversation.RoleAssistant {
		return errors.New("no reply")
	}
	printMessage(cmd.OutOrStdout(), last)
	if last.Text == chat.ApologyText {
		return errors.New("backend request failed")
	}
	return nil
}
