package main

import (
	"context"
	"flag"
	"log"

	"github.com/retrove/consign_backend/config"
	"github.com/retrove/consign_backend/models"
	"github.com/retrove/consign_backend/utils"
)

// seed-admin creates an operator account, typically the first admin on a
// fresh database. Run it as a one-off job:
//
//	go run ./cmd/seed-admin -username admin -password <secret> -name "Administrator" -admin
func main() {
	username := flag.String("username", "", "login username")
	password := flag.String("password", "", "login password (min 8 characters)")
	name := flag.String("name", "", "display name")
	admin := flag.Bool("admin", false, "grant admin rights")
	flag.Parse()

	if *username == "" || *password == "" || *name == "" {
		log.Fatal("usage: seed-admin -username <u> -password <p> -name <n> [-admin]")
	}

	config.ConnectDatabaseWithRetry()
	models.MigrateTable()

	ctx := utils.SetOperatorNameInContext(context.Background(), "System")
	isAdmin := utils.NewFalse()
	if *admin {
		isAdmin = utils.NewTrue()
	}
	user, err := models.CreateUser(ctx, &models.NewUser{
		Username: *username,
		Password: *password,
		Name:     *name,
		IsAdmin:  isAdmin,
	})
	if err != nil {
		log.Fatalf("could not create user: %v", err)
	}
	log.Printf("created user id=%d username=%s admin=%v", user.ID, user.Username, *admin)
}
