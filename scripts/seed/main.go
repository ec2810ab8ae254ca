// Command seed loads the Zayana starter catalog into PostgreSQL. Product ids
// are derived from the slug of the English name, so running it twice updates rows in
// place instead of duplicating them.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgconfig "github.com/zayana/storefront/pkg/config"
	"github.com/zayana/storefront/pkg/database"
	"github.com/zayana/storefront/pkg/logger"
	"github.com/zayana/storefront/pkg/slug"
	"github.com/zayana/storefront/services/storefront/migrations"
)

type config struct {
	LogLevel     string                  `env:"LOG_LEVEL" envDefault:"info"`
	Postgres     database.PostgresConfig `envPrefix:"POSTGRES_"`
	ImageBaseURL string                  `env:"SEED_IMAGE_BASE_URL"`
}

// productNamespace seeds the slug-derived product ids.
var productNamespace = uuid.MustParse("3f6d2a8e-9b14-4c57-8e0a-6c1f5d7b2e94")

type productDef struct {
	nameEN        string
	nameAR        string
	descriptionEN string
	descriptionAR string
	price         string
}

var catalog = []productDef{
	{"Argan Hair Oil", "زيت الأرغان للشعر",
		"Cold-pressed argan oil for dry and frizzy hair.", "زيت أرغان معصور على البارد للشعر الجاف والمجعد.", "185.00"},
	{"Rose Water Toner", "تونر ماء الورد",
		"Alcohol-free toner distilled from Damask roses.", "تونر خالٍ من الكحول مقطر من الورد الدمشقي.", "95.50"},
	{"Shea Body Butter", "زبدة الشيا للجسم",
		"Rich whipped shea butter for overnight repair.", "زبدة شيا مخفوقة غنية لترميم البشرة أثناء الليل.", "210.00"},
	{"Black Seed Soap", "صابون حبة البركة",
		"Handmade olive oil soap with black seed extract.", "صابون مصنوع يدويًا بزيت الزيتون وخلاصة حبة البركة.", "45.00"},
	{"Oud Body Mist", "معطر الجسم بالعود",
		"Light body mist with warm oud and amber notes.", "معطر جسم خفيف بنفحات العود والعنبر الدافئة.", "260.00"},
	{"Coffee Body Scrub", "مقشر الجسم بالقهوة",
		"Arabica coffee scrub with coconut oil.", "مقشر بالقهوة العربية وزيت جوز الهند.", "130.00"},
	{"Aloe Vera Gel", "جل الصبار",
		"Soothing aloe gel for face and body.", "جل صبار مهدئ للوجه والجسم.", "75.25"},
	{"Jasmine Hand Cream", "كريم اليدين بالياسمين",
		"Non-greasy hand cream scented with jasmine.", "كريم يدين غير دهني بعطر الياسمين.", "88.00"},
	{"Castor Lash Serum", "سيروم الرموش بزيت الخروع",
		"Castor oil serum for lashes and brows.", "سيروم بزيت الخروع للرموش والحواجب.", "120.00"},
	{"Dead Sea Mud Mask", "قناع طين البحر الميت",
		"Mineral mud mask for deep pore cleansing.", "قناع طين غني بالمعادن لتنظيف المسام بعمق.", "155.75"},
	{"White Musk Deodorant", "مزيل العرق بالمسك الأبيض",
		"Aluminium-free deodorant with white musk.", "مزيل عرق خالٍ من الألومنيوم بالمسك الأبيض.", "68.00"},
	{"Sidr Leaf Shampoo", "شامبو ورق السدر",
		"Gentle shampoo with ground sidr leaves.", "شامبو لطيف بمسحوق ورق السدر.", "99.99"},
}

type seedRow struct {
	id            string
	nameEN        string
	nameAR        string
	descriptionEN string
	descriptionAR string
	price         decimal.Decimal
	imageURL      string
	createdAt     time.Time
}

// ProductID returns the stable id of the catalog entry with the given slug.
func ProductID(productSlug string) string {
	return uuid.NewSHA1(productNamespace, []byte("product:"+productSlug)).String()
}

// buildRows staggers created_at a minute apart so the newest-first listing
// follows catalog order.
func buildRows(defs []productDef, imageBaseURL string, now time.Time) ([]seedRow, error) {
	rows := make([]seedRow, 0, len(defs))
	base := strings.TrimRight(imageBaseURL, "/")
	seen := make(map[string]bool, len(defs))
	for i, d := range defs {
		s := slug.Generate(d.nameEN)
		if s == "" || seen[s] {
			return nil, fmt.Errorf("product %q: empty or duplicate slug %q", d.nameEN, s)
		}
		seen[s] = true

		price, err := decimal.NewFromString(d.price)
		if err != nil {
			return nil, fmt.Errorf("product %s: parse price: %w", s, err)
		}
		var image string
		if base != "" {
			image = base + "/" + s + ".jpg"
		}
		rows = append(rows, seedRow{
			id:            ProductID(s),
			nameEN:        d.nameEN,
			nameAR:        d.nameAR,
			descriptionEN: d.descriptionEN,
			descriptionAR: d.descriptionAR,
			price:         price,
			imageURL:      image,
			createdAt:     now.Add(-time.Duration(i) * time.Minute).UTC(),
		})
	}
	return rows, nil
}

// upsertStatement renders one multi-row INSERT for the batch. created_at is
// left alone on conflict so reseeding keeps the original ordering.
func upsertStatement(rows []seedRow) (string, []any) {
	const cols = 8
	var sb strings.Builder
	sb.WriteString("INSERT INTO products (id, name_en, name_ar, description_en, description_ar, price, image_url, created_at) VALUES ")
	args := make([]any, 0, len(rows)*cols)
	for i, r := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := i * cols
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5, n+6, n+7, n+8)
		args = append(args, r.id, r.nameEN, r.nameAR, r.descriptionEN, r.descriptionAR, r.price, r.imageURL, r.createdAt)
	}
	sb.WriteString(" ON CONFLICT (id) DO UPDATE SET name_en = EXCLUDED.name_en, name_ar = EXCLUDED.name_ar," +
		" description_en = EXCLUDED.description_en, description_ar = EXCLUDED.description_ar," +
		" price = EXCLUDED.price, image_url = EXCLUDED.image_url")
	return sb.String(), args
}

func seed(ctx context.Context, db database.DBTX, rows []seedRow, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = len(rows)
	}
	written := 0
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		sql, args := upsertStatement(rows[start:end])
		tag, err := db.Exec(ctx, sql, args...)
		if err != nil {
			return written, fmt.Errorf("upsert products %d-%d: %w", start, end, err)
		}
		written += int(tag.RowsAffected())
	}
	return written, nil
}

func main() {
	batchSize := flag.Int("batch", 50, "rows per INSERT statement")
	skipMigrations := flag.Bool("skip-migrations", false, "assume the schema already exists")
	flag.Parse()

	if err := pkgconfig.LoadDotEnv(); err != nil {
		slog.Error("failed to read .env", slog.String("error", err.Error()))
		os.Exit(1)
	}
	var cfg config
	if err := pkgconfig.Load(&cfg); err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		log.Error("failed to connect to postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if !*skipMigrations {
		if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
			log.Error("failed to run migrations", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	rows, err := buildRows(catalog, cfg.ImageBaseURL, time.Now())
	if err != nil {
		log.Error("invalid catalog", slog.String("error", err.Error()))
		os.Exit(1)
	}

	n, err := seed(ctx, pool, rows, *batchSize)
	if err != nil {
		log.Error("seed failed", slog.String("error", err.Error()), slog.Int("written", n))
		os.Exit(1)
	}
	log.Info("catalog seeded", slog.Int("products", n))
}
