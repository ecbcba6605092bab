package cli

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"

	"github.com/dmitrijs2005/equiplookup/internal/client/models"
	"github.com/dmitrijs2005/equiplookup/internal/common"
)

func printEquipment(w io.Writer, recs []models.Equipment) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERIAL\tNAME\tSTATUS\tCATEGORY\tLOCATION")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.SerialNumber, dash(r.Name), dash(string(r.Status)), dash(r.Category), dash(r.Location))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "%d record(s)\n", len(recs))
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// describeError turns a command failure into a line for the user.
func describeError(err error) string {
	var (
		ve *common.ValidationError
		re *common.RemoteError
		ae *common.AuthError
	)
	switch {
	case errors.As(err, &ve):
		return "invalid input: " + ve.Error()
	case errors.As(err, &ae):
		return ae.Error()
	case errors.As(err, &re):
		if re.Status == http.StatusUnauthorized {
			return "session is no longer valid, please login again"
		}
		if re.Status == http.StatusForbidden {
			return "not allowed for your role"
		}
		return re.Error()
	default:
		return err.Error()
	}
}
