package app

import (
	"strings"

	"github.com/spf13/cobra"

	"lending-library/library"
)

func newLoansCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "loans",
		Aliases: []string{"loan"},
		Short:   "Lend, return and inspect loans",
	}
	cmd.AddCommand(
		newLoansCreateCmd(s),
		newLoansReturnCmd(s),
		newLoansDeleteCmd(s),
		newLoansGetCmd(s),
		newLoansListCmd(s),
		newLoansActiveCmd(s),
	)
	return cmd
}

// showLoan prints a loan together with its member's name and book's title.
func (s *session) showLoan(cmd *cobra.Command, loan *library.Loan) error {
	details, err := s.mgr.DescribeLoan(cmd.Context(), loan)
	if err != nil {
		return err
	}
	return s.out.loan(details)
}

func (s *session) showLoans(cmd *cobra.Command, loans []library.Loan) error {
	details, err := s.mgr.DescribeLoans(cmd.Context(), loans)
	if err != nil {
		return err
	}
	return s.out.loans(details)
}

func newLoansCreateCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:     "create <member-id> <book-id>",
		Aliases: []string{"lend", "checkout"},
		Short:   "Lend an available book to a member",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			memberID, err := parseID("member", args[0])
			if err != nil {
				return err
			}
			bookID, err := parseID("book", args[1])
			if err != nil {
				return err
			}
			loan, err := s.mgr.Loans.CreateLoan(cmd.Context(), memberID, bookID)
			if err != nil {
				return err
			}
			s.out.ok("Created loan %d", loan.ID)
			return s.showLoan(cmd, loan)
		},
	}
}

func newLoansReturnCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "return <loan-id>",
		Short: "Return a loaned book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("loan", args[0])
			if err != nil {
				return err
			}
			loan, err := s.mgr.Loans.ReturnLoan(cmd.Context(), id)
			if err != nil {
				return err
			}
			s.out.ok("Returned loan %d; the book is available again", loan.ID)
			return s.showLoan(cmd, loan)
		},
	}
}

func newLoansDeleteCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <loan-id>",
		Short: "Delete a loan record; an active loan frees its book first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("loan", args[0])
			if err != nil {
				return err
			}
			if err := s.mgr.Loans.DeleteLoan(cmd.Context(), id); err != nil {
				return err
			}
			s.out.ok("Deleted loan %d", id)
			return nil
		},
	}
}

func newLoansGetCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "get <loan-id>",
		Short: "Show a loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("loan", args[0])
			if err != nil {
				return err
			}
			loan, err := s.mgr.Loans.GetLoan(cmd.Context(), id)
			if err != nil {
				return err
			}
			return s.showLoan(cmd, loan)
		},
	}
}

func newLoansListCmd(s *session) *cobra.Command {
	var (
		memberID int64
		bookID   int64
		state    string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List loans, optionally by member, book or state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loans, err := s.mgr.Loans.ListLoans(cmd.Context(), library.LoanFilter{
				MemberID: memberID,
				BookID:   bookID,
				State:    library.LoanState(strings.ToUpper(state)),
			})
			if err != nil {
				return err
			}
			return s.showLoans(cmd, loans)
		},
	}
	cmd.Flags().Int64Var(&memberID, "member", 0, "Only loans of this member ID")
	cmd.Flags().Int64Var(&bookID, "book", 0, "Only loans of this book ID")
	cmd.Flags().StringVar(&state, "state", "", "Only loans in this state: active or returned")
	return cmd
}

func newLoansActiveCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "active <member-id>",
		Short: "List a member's active loans",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("member", args[0])
			if err != nil {
				return err
			}
			details, err := s.mgr.ActiveLoansWithDetails(cmd.Context(), id)
			if err != nil {
				return err
			}
			return s.out.loans(details)
		},
	}
}
