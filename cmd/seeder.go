package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"

	coreuser "github.com/ganpare/densai/internal/core/user"
	"github.com/ganpare/densai/internal/institution"
	"github.com/ganpare/densai/internal/user"
	"github.com/spf13/cobra"
)

// seedActor creates the initial accounts. No stored user has id -1.
var seedActor = &coreuser.Actor{ID: -1, Name: "seed", Roles: []coreuser.Role{coreuser.RoleAdmin}}

const seedPassword = "password123"

var seedUsers = []user.CreateUserDTO{
	{Email: "admin@densai.local", Name: "Admin", Roles: []string{"admin"}},
	{Email: "approver@densai.local", Name: "Aki Approver", Roles: []string{"approver"}, ApprovalLevel: intPtr(1)},
	{Email: "handler@densai.local", Name: "Hana Handler", Roles: []string{"handler"}},
	{Email: "handler2@densai.local", Name: "Kenji Handler", Roles: []string{"handler"}},
	{Email: "lead@densai.local", Name: "Yui Lead", Roles: []string{"handler", "approver"}, ApprovalLevel: intPtr(2)},
}

var seedInstitutions = []struct {
	Code     string
	Name     string
	Branches [][2]string
}{
	{"0001", "Mizuho Bank", [][2]string{{"001", "Head Office"}, {"110", "Marunouchi"}}},
	{"0005", "MUFG Bank", [][2]string{{"001", "Head Office"}, {"250", "Shinjuku"}}},
	{"0009", "Sumitomo Mitsui Banking", [][2]string{{"001", "Head Office"}}},
}

// tables in delete order for --clear
var seedTables = []string{"reports", "user_roles", "users", "branches", "financial_institutions", "sequence_counters"}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample users, roles and financial institutions for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		app, err := newApp(ctx, cfg)
		if err != nil {
			log.Fatalf("failed to init app: %v", err)
		}
		defer app.Close()

		if clearData {
			for _, table := range seedTables {
				if err := app.Gorm.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		for _, dto := range seedUsers {
			dto.Password = seedPassword
			u, err := app.UserService.CreateUser(ctx, seedActor, dto)
			if errors.Is(err, user.ErrEmailTaken) {
				fmt.Println("user already exists:", dto.Email)
				continue
			}
			if err != nil {
				log.Fatalf("failed to seed user %s: %v", dto.Email, err)
			}
			fmt.Printf("Seeded user %s with roles %v\n", u.Email, u.Roles)
		}

		for _, s := range seedInstitutions {
			branches := make([]*institution.Branch, 0, len(s.Branches))
			for _, b := range s.Branches {
				branches = append(branches, &institution.Branch{BranchCode: b[0], Name: b[1]})
			}
			if _, err := app.InstitutionService.Register(ctx, institution.NewInstitution(s.Code, s.Name), branches...); err != nil {
				log.Fatalf("failed to seed institution %s: %v", s.Code, err)
			}
			fmt.Printf("Seeded institution %s %s (%d branches)\n", s.Code, s.Name, len(branches))
		}

		fmt.Println("Seed complete. Every seeded account uses password:", seedPassword)
	},
}

func intPtr(v int) *int {
	return &v
}
