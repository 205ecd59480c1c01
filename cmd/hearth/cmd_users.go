package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(resolveCmd, contactsCmd, inviteCmd, linkCmd)

	inviteCmd.Flags().String("email", "", "invitee email")
	inviteCmd.Flags().String("name", "", "invitee display name")
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <phone>",
	Short: "Show who a phone number acts as, creating a ghost user if unknown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.newUsecases(nil).Users.Resolve(context.Background(), args[0])
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "ACTING ID\t%s\n", user.ActingID)
		fmt.Fprintf(w, "NAME\t%s\n", user.DisplayName)
		fmt.Fprintf(w, "ADDRESS\t%s\n", user.Address)
		fmt.Fprintf(w, "COLLABORATOR\t%t\n", user.IsCollaborator)
		return w.Flush()
	},
}

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "List every address that receives household notifications",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		contacts, err := a.newUsecases(nil).Users.Contacts(context.Background())
		if err != nil {
			return err
		}
		if len(contacts) == 0 {
			fmt.Println("No contacts found.")
			return nil
		}
		for _, c := range contacts {
			fmt.Println(c)
		}
		return nil
	},
}

var inviteCmd = &cobra.Command{
	Use:   "invite <inviter-user-id> <phone>",
	Short: "Let a phone number act inside another user's household",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		name, _ := cmd.Flags().GetString("name")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		collab, err := a.newUsecases(nil).Users.AddCollaborator(context.Background(), args[0], args[1], email, name)
		if err != nil {
			return err
		}
		fmt.Printf("Invited %s (collaboration %s)\n", collab.InviteePhone, collab.ID)
		return nil
	},
}

var linkCmd = &cobra.Command{
	Use:   "link <user-id> <account-id>",
	Short: "Claim a ghost user for an authenticated account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.newUsecases(nil).Users.LinkAccount(context.Background(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Linked %s to account %s\n", args[0], args[1])
		return nil
	},
}
