package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/equiplookup/internal/client/importer"
	"github.com/dmitrijs2005/equiplookup/internal/client/models"
	"github.com/dmitrijs2005/equiplookup/internal/netx"
)

// readImportFile is a test seam for importer.ReadFile.
var readImportFile = importer.ReadFile

func (a *App) Search(ctx context.Context, pattern string) error {
	recs, err := a.catalog.Search(ctx, pattern)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintf(a.out, "No equipment matches %q\n", strings.TrimSpace(pattern))
		return nil
	}
	printEquipment(a.out, recs)
	return nil
}

func (a *App) List(ctx context.Context) error {
	recs, err := a.catalog.List(ctx)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(a.out, "Catalog is empty")
		return nil
	}
	printEquipment(a.out, recs)
	return nil
}

type field struct {
	prompt string
	dst    *string
}

// Add prompts for one record. Only the serial number is required.
func (a *App) Add(ctx context.Context) error {
	var in models.EquipmentInput
	var status string
	fields := []field{
		{"Serial number", &in.SerialNumber},
		{"Name (optional)", &in.Name},
		{"Status [available|in_service|under_warranty|out_of_contract] (optional)", &status},
		{"Category (optional)", &in.Category},
		{"Location (optional)", &in.Location},
		{"Image URL (optional)", &in.ImageURL},
	}
	for _, f := range fields {
		v, err := getSimpleText(a.reader, f.prompt, a.out)
		if err != nil {
			return err
		}
		*f.dst = v
	}
	in.Status = models.Status(status)

	rec, err := a.catalog.Insert(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added %s (%s)\n", rec.SerialNumber, rec.ID)
	return nil
}

// Import reads a spreadsheet and inserts it as one batch. Nothing is
// written when any row is rejected.
func (a *App) Import(ctx context.Context, path string) error {
	batch, err := readImportFile(path)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		fmt.Fprintf(a.out, "No rows found in %s\n", path)
		return nil
	}

	res, err := a.catalog.BulkInsert(ctx, batch)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Imported %d records from %s\n", res.Count, path)
	return nil
}

// Image saves the image of the record with exactly this serial number.
func (a *App) Image(ctx context.Context, serial, path string) error {
	recs, err := a.catalog.Search(ctx, serial)
	if err != nil {
		return err
	}
	var rec *models.Equipment
	for i := range recs {
		if strings.EqualFold(recs[i].SerialNumber, serial) {
			rec = &recs[i]
			break
		}
	}
	if rec == nil {
		fmt.Fprintf(a.out, "No equipment with serial %q\n", serial)
		return nil
	}
	if rec.ImageURL == "" {
		fmt.Fprintf(a.out, "%s has no image\n", rec.SerialNumber)
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	n, err := netx.Download(ctx, a.images, rec.ImageURL, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return err
	}
	fmt.Fprintf(a.out, "Saved %d bytes to %s\n", n, path)
	return nil
}

func (a *App) Health(ctx context.Context) error {
	if err := a.catalog.Health(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Catalog is reachable")
	return nil
}
