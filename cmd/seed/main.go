// Command seed fills the database with demo users, posts and activity.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"uboard/internal/bootstrap"
	"uboard/internal/config"
	"uboard/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 25, "Number of users to create")
	numPosts := flag.Int("posts", 120, "Number of posts to create")
	maxComments := flag.Int("comments", 6, "Maximum comments per post")
	maxLikes := flag.Int("likes", 10, "Maximum likes per post")
	maxDays := flag.Int("days", 30, "Spread post creation times over this many days")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	fast := flag.Bool("fast", false, "Store unhashed passwords for faster seeding (seeded users cannot log in)")
	dryRun := flag.Bool("dry-run", false, "Build records without writing them")
	randSeed := flag.Int64("seed", 0, "Random seed (0 uses the current time)")
	flag.Parse()

	log.Println("Database Seeder")
	log.Printf("Target: %d users, %d posts, clean=%v dry-run=%v", *numUsers, *numPosts, *shouldClean, *dryRun)

	if *randSeed == 0 {
		*randSeed = time.Now().UnixNano()
	}
	opts := seed.Options{
		NumUsers:           *numUsers,
		NumPosts:           *numPosts,
		MaxCommentsPerPost: *maxComments,
		MaxLikesPerPost:    *maxLikes,
		MaxDays:            *maxDays,
		ShouldClean:        *shouldClean,
		SkipBcrypt:         *fast,
		DryRun:             *dryRun,
		RandSeed:           *randSeed,
	}

	ctx := context.Background()
	if *dryRun {
		res, err := seed.Seed(ctx, nil, opts)
		if err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
		log.Printf("Dry run built %d users, %d posts, %d comments", len(res.Users), len(res.Posts), res.Comments)
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	db, _, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	res, err := seed.Seed(ctx, db, opts)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Created %d users, %d posts, %d comments", len(res.Users), len(res.Posts), res.Comments)
	if !*fast {
		log.Printf("All seeded users share the password %q; log in as \"demo\"", seed.DefaultPassword)
	}
}
