package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"dealflow/internal/models"
)

var memoVersion int

var memoCmd = &cobra.Command{
	Use:   "memo",
	Short: "Read investment memos",
}

var memoShowCmd = &cobra.Command{
	Use:   "show DEAL_ID",
	Short: "Render the latest memo, or --version N",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		memos, err := newClient().Memos(ctx, args[0])
		if err != nil {
			return err
		}
		m, err := pickMemo(memos, memoVersion)
		if err != nil {
			return err
		}
		return Write(os.Stdout, Format(outputFormat), m)
	},
}

var memoListCmd = &cobra.Command{
	Use:   "list DEAL_ID",
	Short: "List memo versions, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		memos, err := newClient().Memos(ctx, args[0])
		if err != nil {
			return err
		}
		if Format(outputFormat) == FormatText {
			for _, m := range memos {
				cmd.Printf("v%d\t%s\t%s\t%s\n", m.Version, m.Recommendation, m.Model, m.CreatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		}
		return Write(os.Stdout, Format(outputFormat), memos)
	},
}

// pickMemo expects memos newest first. Version 0 selects the newest.
func pickMemo(memos []models.Memo, version int) (*models.Memo, error) {
	if len(memos) == 0 {
		return nil, errors.New("deal has no memo yet")
	}
	if version <= 0 {
		return &memos[0], nil
	}
	for i := range memos {
		if memos[i].Version == version {
			return &memos[i], nil
		}
	}
	return nil, errors.New("memo version not found")
}

func init() {
	memoShowCmd.Flags().IntVar(&memoVersion, "version", 0, "memo version (default latest)")
	memoCmd.AddCommand(memoShowCmd, memoListCmd)
}
