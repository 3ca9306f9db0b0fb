package main

import (
	"bufio"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"thera-watch/internal/config"
	"thera-watch/internal/migrations"
)

func main() {
	// Flags:
	// --auto  => non-interactive (deploy scripts); creates the DB if missing, never drops
	// --force => manual mode only: drop and recreate an existing DB
	auto := flag.Bool("auto", false, "non-interactive mode; creates the DB when missing, runs migrations, NEVER drops an existing DB")
	force := flag.Bool("force", false, "drop and recreate the database when it already exists (manual mode)")
	flag.Parse()

	log.Println("[thera-watch-migrator] starting...")

	cfg, err := config.LoadJournal()
	if err != nil {
		log.Fatalf("error loading configuration: %v", err)
	}

	adminDB, err := sql.Open("pgx", cfg.AdminDSN())
	if err != nil {
		log.Fatalf("error connecting to Postgres (admin): %v", err)
	}
	defer adminDB.Close()

	if err := adminDB.Ping(); err != nil {
		log.Fatalf("error pinging Postgres (admin): %v", err)
	}

	log.Printf("Connected to Postgres admin at %s:%d\n", cfg.DBHost, cfg.DBPort)

	exists, err := databaseExists(adminDB, cfg.DBName)
	if err != nil {
		log.Fatalf("error checking whether database %q exists: %v", cfg.DBName, err)
	}

	if exists {
		if *auto {
			log.Printf("Database %q exists. --auto: no drop, applying migrations only.\n", cfg.DBName)
			runAppMigrationsOrDie(cfg)
			return
		}

		if *force {
			log.Printf("Database %q exists and --force was given.", cfg.DBName)
			log.Printf("WARNING: this DELETES the whole notification journal and recreates it.")

			if !askYesNo(fmt.Sprintf("Really DROP and RECREATE database %q? [y/N] ", cfg.DBName)) {
				log.Println("Cancelled by user. Nothing was changed.")
				return
			}

			log.Printf("Dropping database %q...", cfg.DBName)
			if err := dropDatabase(adminDB, cfg.DBName); err != nil {
				log.Fatalf("error dropping database %q: %v", cfg.DBName, err)
			}

			log.Printf("Creating database %q again...", cfg.DBName)
			if err := createDatabase(adminDB, cfg.DBName); err != nil {
				log.Fatalf("error recreating database %q: %v", cfg.DBName, err)
			}

			runAppMigrationsOrDie(cfg)
			return
		}

		log.Printf("Database %q exists. Nothing will be dropped. Applying migrations...\n", cfg.DBName)
		runAppMigrationsOrDie(cfg)
		return
	}

	if *auto {
		log.Printf("Database %q does not exist. --auto: creating it...", cfg.DBName)
		if err := createDatabase(adminDB, cfg.DBName); err != nil {
			log.Fatalf("error creating database %q: %v", cfg.DBName, err)
		}
		runAppMigrationsOrDie(cfg)
		return
	}

	log.Printf("Database %q does not exist.", cfg.DBName)
	if !askYesNo("Create it now? [y/N] ") {
		log.Println("Cancelled by user. Nothing was changed.")
		return
	}

	if err := createDatabase(adminDB, cfg.DBName); err != nil {
		log.Fatalf("error creating database %q: %v", cfg.DBName, err)
	}
	log.Printf("Database %q created.\n", cfg.DBName)

	runAppMigrationsOrDie(cfg)
}

// runAppMigrationsOrDie connects to the journal database and runs migrations.Run.
func runAppMigrationsOrDie(cfg *config.Config) {
	appDB, err := sql.Open("pgx", cfg.AppDSN())
	if err != nil {
		log.Fatalf("error connecting to the journal database: %v", err)
	}
	defer appDB.Close()

	if err := appDB.Ping(); err != nil {
		log.Fatalf("error pinging the journal database: %v", err)
	}

	if err := migrations.Run(appDB); err != nil {
		log.Fatalf("error running migrations: %v", err)
	}

	log.Println("Migrations applied. Journal ready.")
}

func databaseExists(db *sql.DB, name string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1);`
	if err := db.QueryRow(query, name).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func createDatabase(db *sql.DB, name string) error {
	stmt := fmt.Sprintf(
		`CREATE DATABASE "%s" WITH TEMPLATE=template0 ENCODING 'UTF8';`,
		name,
	)
	_, err := db.Exec(stmt)
	return err
}

func dropDatabase(db *sql.DB, name string) error {
	killStmt := `
SELECT pg_terminate_backend(pid)
FROM pg_stat_activity
WHERE datname = $1
  AND pid <> pg_backend_pid();
`
	if _, err := db.Exec(killStmt, name); err != nil {
		return fmt.Errorf("terminating connections to %q: %w", name, err)
	}

	// DROP DATABASE takes no bind parameter for the identifier
	stmt := fmt.Sprintf(`DROP DATABASE "%s";`, name)
	if _, err := db.Exec(stmt); err != nil {
		return fmt.Errorf("DROP DATABASE %q: %w", name, err)
	}

	return nil
}

func askYesNo(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}
