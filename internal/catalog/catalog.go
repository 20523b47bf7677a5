package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"hotel-reservation-backend/internal/model"
	"hotel-reservation-backend/internal/parse"
	"hotel-reservation-backend/internal/store"
)

// File is the declared room catalog.
type File struct {
	Classes  []ClassEntry   `yaml:"classes" validate:"dive"`
	Benefits []BenefitEntry `yaml:"benefits" validate:"dive"`
	Rooms    []RoomEntry    `yaml:"rooms"`
}

type ClassEntry struct {
	Name string `yaml:"name" validate:"required,max=30"`
}

type BenefitEntry struct {
	Name                  string `yaml:"name" validate:"required,max=20"`
	ShortDescription      string `yaml:"short_description" validate:"max=50"`
	DisplayableOnHomepage bool   `yaml:"displayable_on_homepage"`
}

// RoomEntry is one room. Prices are decimal amounts in the hotel currency.
type RoomEntry struct {
	Number           string   `yaml:"number" validate:"required,roomnumber"`
	Class            string   `yaml:"class"`
	AdultCapacity    int      `yaml:"adult_capacity" validate:"min=1,max=5"`
	ChildCapacity    int      `yaml:"child_capacity" validate:"min=0,max=3"`
	Size             int      `yaml:"size" validate:"min=2,max=30"`
	DailyPrice       float64  `yaml:"daily_price" validate:"gte=100,lte=500"`
	ShortDescription string   `yaml:"short_description" validate:"max=50"`
	Description      string   `yaml:"description"`
	ImagePath        string   `yaml:"image_path" validate:"max=256"`
	Benefits         []string `yaml:"benefits"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("roomnumber", func(fl validator.FieldLevel) bool {
		return parse.RoomNumber(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// Load reads a catalog file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog: %w", err)
	}
	if err := validate.Struct(&f); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return &f, nil
}

// Catalog converts the file for the store. Invalid rooms are left out and
// reported in the returned error.
func (f *File) Catalog() (store.Catalog, error) {
	var c store.Catalog
	for _, e := range f.Classes {
		c.Classes = append(c.Classes, model.RoomClass{Name: e.Name})
	}
	for _, e := range f.Benefits {
		c.Benefits = append(c.Benefits, model.Benefit{
			Name:                  e.Name,
			ShortDescription:      e.ShortDescription,
			DisplayableOnHomepage: e.DisplayableOnHomepage,
		})
	}

	var errs []error
	seen := make(map[string]bool, len(f.Rooms))
	for _, e := range f.Rooms {
		if err := validate.Struct(e); err != nil {
			errs = append(errs, fmt.Errorf("room %q: %w", e.Number, err))
			continue
		}
		if seen[e.Number] {
			errs = append(errs, fmt.Errorf("room %q: declared twice", e.Number))
			continue
		}
		seen[e.Number] = true
		c.Rooms = append(c.Rooms, store.CatalogRoom{
			Room: model.Room{
				Number:           e.Number,
				AdultCapacity:    e.AdultCapacity,
				ChildCapacity:    e.ChildCapacity,
				Size:             e.Size,
				DailyPriceCents:  parse.Cents(e.DailyPrice),
				Available:        true,
				ShortDescription: e.ShortDescription,
				Description:      e.Description,
				ImagePath:        e.ImagePath,
			},
			ClassName:    e.Class,
			BenefitNames: e.Benefits,
		})
	}
	return c, errors.Join(errs...)
}

// Writer is the store method Sync needs.
type Writer interface {
	UpsertCatalog(ctx context.Context, c store.Catalog) error
}

// Sync loads the catalog at path and upserts it. Invalid rooms are logged
// and skipped; the rest are still written.
func Sync(ctx context.Context, w Writer, path string) error {
	f, err := Load(path)
	if err != nil {
		return err
	}
	c, err := f.Catalog()
	if err != nil {
		log.Printf("[catalog] skipping invalid entries: %v", err)
	}
	if err := w.UpsertCatalog(ctx, c); err != nil {
		return fmt.Errorf("catalog sync failed: %w", err)
	}
	log.Printf("[catalog] synced %d classes, %d benefits, %d rooms", len(c.Classes), len(c.Benefits), len(c.Rooms))
	return nil
}
