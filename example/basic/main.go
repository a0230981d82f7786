package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/daggergm/daggergm"
	"github.com/daggergm/daggergm/core/generate"
	"github.com/daggergm/daggergm/core/pipeline"
	"github.com/daggergm/daggergm/helper"
	"github.com/daggergm/daggergm/model"
)

func tier(t int) *int { return &t }

// sampleContent is a miniature canonical content set, enough for the
// expansion to have real candidates to reference.
var sampleContent = []pipeline.SeedEntity{
	{Category: model.CategoryAdversary, Name: "Dire Wolf", Tier: tier(1), Attributes: model.Attributes{"difficulty": 11}},
	{Category: model.CategoryAdversary, Name: "Cave Ogre", Tier: tier(1), Attributes: model.Attributes{"difficulty": 13}},
	{Category: model.CategoryEnvironment, Name: "Abandoned Grove", Tier: tier(1), Attributes: model.Attributes{"type": "exploration"}},
	{Category: model.CategoryClass, Name: "Guardian", Attributes: model.Attributes{"domains": []string{"valor", "blade"}}},
	{Category: model.CategoryAncestry, Name: "Dwarf"},
	{Category: model.CategoryCommunity, Name: "Ridgeborne"},
	{Category: model.CategoryWeapon, Name: "Battleaxe", Tier: tier(1), Attributes: model.Attributes{"damage": "d10+3"}},
	{Category: model.CategoryArmor, Name: "Chainmail Armor", Tier: tier(1), Attributes: model.Attributes{"score": 4}},
}

// scriptedGenerator returns canned structured output so the example runs
// without a completion provider. Swap in UseOpenAIGenerator for real runs.
func scriptedGenerator(ctx context.Context, system, user, schemaName string, schema map[string]any) (json.RawMessage, error) {
	switch schemaName {
	case "adventure_scaffold":
		return json.RawMessage(`{"scenes": [
			{"title": "Tracks in the Snow", "type": "exploration", "description": "The party follows wolf tracks into the high passes."},
			{"title": "The Shepherd's Plea", "type": "social", "description": "A shepherd begs the party to find her missing flock before nightfall."},
			{"title": "Den of the Dire Wolf", "type": "combat", "description": "The trail ends at a grove where something large has made its den."}
		]}`), nil
	default:
		return json.RawMessage(`{
			"descriptions": [
				"The grove is unnaturally quiet; shredded wool hangs from the low branches.",
				"Fresh kills are cached in the roots of a lightning-split oak.",
				"The dire wolf circles wide before it commits, testing the party's line."
			],
			"narration": "The trees close overhead and the snow swallows every sound.",
			"npcs": [{"name": "Maren Stonehollow", "class": "Guardian", "ancestry": "Dwarf", "community": "Ridgeborne", "equipment": ["Battleaxe"], "personality": "gruff, protective", "role": "ally"}],
			"adversaries": [{"name": "Dire Wolf", "quantity": 2}],
			"environment": {"name": "Abandoned Grove", "custom_description": "Snowbound and scent-marked."},
			"loot": [{"name": "Chainmail Armor", "item_type": "armor", "quantity": 1}]
		}`), nil
	}
}

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	d, err := daggergm.NewDaggerGM(dbConfig, 384)
	if err != nil {
		log.Fatalf("Failed to create daggergm: %v", err)
	}
	defer d.Close()

	// Set up the local embedder and the scripted generator
	if err := d.UseDefaultEmbedder(); err != nil {
		log.Fatalf("Failed to set up embedder: %v", err)
	}
	d.SetGenerator(generate.GeneratorFunc(scriptedGenerator))

	ctx := context.Background()

	// Seed the canonical content set
	fmt.Println("Seeding content...")
	numSeeded, err := d.SeedContent(ctx, sampleContent)
	if err != nil {
		log.Fatalf("Failed to seed content: %v", err)
	}
	fmt.Printf("Seeded %d content entities\n", numSeeded)

	// Create an adventure and generate its scaffold
	adventure, err := d.CreateAdventure(ctx, "user-1", model.AdventureParams{
		Title:      "Winter of the Hungry Pass",
		Frame:      "A snowbound mountain village on the edge of the wilds",
		Focus:      "Something is stealing livestock, and winter stores are running out",
		PartySize:  4,
		PartyLevel: 2,
	})
	if err != nil {
		log.Fatalf("Failed to create adventure: %v", err)
	}

	adventure, err = d.GenerateScaffold(ctx, "user-1", adventure.ID)
	if err != nil {
		log.Fatalf("Failed to generate scaffold: %v", err)
	}
	fmt.Printf("\nScaffold for %q:\n", adventure.Title)
	for _, scene := range adventure.Scenes {
		fmt.Printf("%d. %s [%s]: %s\n", scene.OrderIndex+1, scene.Title, scene.Type, scene.Description)
	}

	// Expand and confirm the combat scene
	combatScene := adventure.Scenes[len(adventure.Scenes)-1]
	scene, err := d.ExpandScene(ctx, "user-1", adventure.ID, combatScene.ID)
	if err != nil {
		log.Fatalf("Failed to expand scene: %v", err)
	}
	fmt.Printf("\nExpanded %q:\n", scene.Title)
	for _, description := range scene.Expansion.Descriptions {
		fmt.Printf("- %s\n", description)
	}
	for _, npc := range scene.Expansion.NPCs {
		fmt.Printf("NPC: %s (%s %s, level %d, hp %d)\n", npc.Name, npc.AncestryName, npc.ClassName, npc.Level, npc.HP)
	}
	for _, adversary := range scene.Expansion.Adversaries {
		fmt.Printf("Adversary: %s x%d\n", adversary.DisplayName, adversary.Quantity)
	}

	if _, err := d.ConfirmExpansion(ctx, "user-1", adventure.ID, combatScene.ID); err != nil {
		log.Fatalf("Failed to confirm expansion: %v", err)
	}

	// The export gate lists the scenes still waiting on confirmation
	check, err := d.CanExport(ctx, "user-1", adventure.ID)
	if err != nil {
		log.Fatalf("Failed to check export: %v", err)
	}
	fmt.Printf("\nExportable: %v (%d scenes still unconfirmed)\n", check.Allowed, len(check.BlockingScenes))

	fmt.Println("\nBasic example completed successfully!")
}
