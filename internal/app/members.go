package app

import (
	"github.com/spf13/cobra"

	"lending-library/library"
)

type memberFlags struct {
	name       string
	email      string
	phone      string
	address    string
	city       string
	postalCode string
	reading    string
}

func (f *memberFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Full name")
	cmd.Flags().StringVar(&f.email, "email", "", "Email (unique)")
	cmd.Flags().StringVar(&f.phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&f.address, "address", "", "Profile: street address")
	cmd.Flags().StringVar(&f.city, "city", "", "Profile: city")
	cmd.Flags().StringVar(&f.postalCode, "postal-code", "", "Profile: postal code")
	cmd.Flags().StringVar(&f.reading, "reading", "", "Profile: reading preferences")
}

// profileChanged reports whether any profile flag was given.
func profileChanged(cmd *cobra.Command) bool {
	for _, name := range []string{"address", "city", "postal-code", "reading"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

func newMembersCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "members",
		Aliases: []string{"member"},
		Short:   "Manage library members and their profiles",
	}
	cmd.AddCommand(
		newMembersAddCmd(s),
		newMembersListCmd(s),
		newMembersGetCmd(s),
		newMembersUpdateCmd(s),
		newMembersDeleteCmd(s),
	)
	return cmd
}

func newMembersAddCmd(s *session) *cobra.Command {
	var f memberFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a member, optionally with a profile",
		Example: `  lending-library members add --name "Ana Gómez" --email ana@example.com \
      --address "Calle Mayor 1" --city Madrid --postal-code 28013`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m := library.Member{Name: f.name, Email: f.email, Phone: f.phone}
			if profileChanged(cmd) {
				m.Profile = &library.Profile{
					Address:            f.address,
					City:               f.city,
					PostalCode:         f.postalCode,
					ReadingPreferences: f.reading,
				}
			}
			created, err := s.mgr.Members.CreateMember(cmd.Context(), m)
			if err != nil {
				return err
			}
			s.out.ok("Added member %q with ID %d", created.Name, created.ID)
			return s.out.member(created)
		},
	}
	f.register(cmd)
	return cmd
}

func newMembersListCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			members, err := s.mgr.Members.ListMembers(cmd.Context())
			if err != nil {
				return err
			}
			return s.out.members(members)
		},
	}
}

func newMembersGetCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a member and their profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("member", args[0])
			if err != nil {
				return err
			}
			m, err := s.mgr.Members.GetMember(cmd.Context(), id)
			if err != nil {
				return err
			}
			return s.out.member(m)
		},
	}
}

func newMembersUpdateCmd(s *session) *cobra.Command {
	var f memberFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a member; omitted flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("member", args[0])
			if err != nil {
				return err
			}
			current, err := s.mgr.Members.GetMember(cmd.Context(), id)
			if err != nil {
				return err
			}

			u := library.MemberUpdate{Name: current.Name, Email: current.Email, Phone: current.Phone}
			flags := cmd.Flags()
			if flags.Changed("name") {
				u.Name = f.name
			}
			if flags.Changed("email") {
				u.Email = f.email
			}
			if flags.Changed("phone") {
				u.Phone = f.phone
			}
			if profileChanged(cmd) {
				p := library.Profile{}
				if current.Profile != nil {
					p = *current.Profile
				}
				if flags.Changed("address") {
					p.Address = f.address
				}
				if flags.Changed("city") {
					p.City = f.city
				}
				if flags.Changed("postal-code") {
					p.PostalCode = f.postalCode
				}
				if flags.Changed("reading") {
					p.ReadingPreferences = f.reading
				}
				u.Profile = &p
			}

			updated, err := s.mgr.Members.UpdateMember(cmd.Context(), id, u)
			if err != nil {
				return err
			}
			s.out.ok("Updated member %d", updated.ID)
			return s.out.member(updated)
		},
	}
	f.register(cmd)
	return cmd
}

func newMembersDeleteCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a member with no active loans, with profile and loan history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("member", args[0])
			if err != nil {
				return err
			}
			if err := s.mgr.Members.DeleteMember(cmd.Context(), id); err != nil {
				return err
			}
			s.out.ok("Deleted member %d", id)
			return nil
		},
	}
}
