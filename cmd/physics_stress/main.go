// Stress test comparing inline, job-queue and GPU broad-phase stepping
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"runtime"
	"strconv"
	"strings"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"rigid3d/internal/compute"
	"rigid3d/internal/engine"
	"rigid3d/internal/jobs"
	"rigid3d/internal/physics"
)

var (
	counts     = flag.String("counts", "250,500,1000,2000", "Comma-separated body counts")
	steps      = flag.Int("steps", 120, "Substeps per run")
	workers    = flag.Int("workers", runtime.NumCPU(), "Job queue workers")
	useGPU     = flag.Bool("gpu", false, "Also run with the GPU broad phase")
	configPath = flag.String("config", "physics.toml", "Physics config (defaults when missing)")
)

type result struct {
	perStep  time.Duration
	sleeping int
	gpu      bool
}

func main() {
	flag.Parse()

	cfg, err := physics.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Stress: %v", err)
	}

	queue := jobs.NewQueue(*workers)
	defer queue.Close()

	var sys *compute.System
	if *useGPU {
		sys, err = compute.NewSystem()
		if err != nil {
			log.Printf("Stress: GPU unavailable: %v", err)
		} else {
			defer sys.Release()
			info := sys.Info()
			fmt.Printf("GPU: %s | %s | %s\n", info.Backend, info.Vendor, info.Name)
		}
	}
	fmt.Printf("Workers: %d | substep %.4fs | %d steps per run\n\n", queue.Workers(), cfg.Substep, *steps)

	for _, field := range strings.Split(*counts, ",") {
		count, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil || count <= 0 {
			log.Printf("Stress: skipping count %q", field)
			continue
		}

		inline := run(cfg, count, nil, nil)
		queued := run(cfg, count, queue, nil)
		line := fmt.Sprintf("%5d bodies: inline %9v | jobs %9v (%.1fx)",
			count, inline.perStep.Round(time.Microsecond), queued.perStep.Round(time.Microsecond),
			float64(inline.perStep)/float64(queued.perStep))
		if sys != nil {
			gpu := run(cfg, count, queue, sys)
			line += fmt.Sprintf(" | gpu %9v", gpu.perStep.Round(time.Microsecond))
			if !gpu.gpu {
				line += " (cpu fallback)"
			}
		}
		fmt.Printf("%s | %d asleep\n", line, queued.sleeping)
	}
}

// run drops count bodies onto a plane and times the substeps.
func run(cfg physics.Config, count int, queue *jobs.Queue, sys *compute.System) result {
	world, err := physics.NewPhysicsWorld(cfg, queue)
	if err != nil {
		log.Fatalf("Stress: %v", err)
	}
	if sys != nil {
		if err := world.InitGPU(sys); err != nil {
			log.Printf("Stress: %v", err)
		}
		defer world.Release()
	}

	ground := world.CreatePhysicsForm(physics.DefaultFormParams())
	params := physics.DefaultFormParams()
	params.Restitution = 0.2
	ball := world.CreatePhysicsForm(params)
	crate := world.CreatePhysicsForm(params)
	if err := errors.Join(
		ground.CreatePlane(rl.Vector3{Y: 1}, 0),
		ball.CreateSphere(0.5, 1),
		crate.CreateOBB(rl.Vector3{X: 0.5, Y: 0.5, Z: 0.5}, 1),
	); err != nil {
		log.Fatalf("Stress: %v", err)
	}
	if _, err := world.CreatePhysicsBody(nil, ground.Handle(), physics.MotionStatic); err != nil {
		log.Fatalf("Stress: %v", err)
	}

	// Spawn in a column whose footprint grows with count to keep density reasonable
	rng := rand.New(rand.NewPCG(42, uint64(count)))
	spread := float32(10) + float32(count)/50
	for i := range count {
		obj := engine.NewGameObject(fmt.Sprintf("body%d", i))
		obj.SetPosition(rl.Vector3{
			X: rng.Float32()*spread - spread/2,
			Y: 1 + rng.Float32()*spread,
			Z: rng.Float32()*spread - spread/2,
		})
		form := ball
		if i%2 == 1 {
			form = crate
		}
		if _, err := world.CreatePhysicsBody(obj, form.Handle(), physics.MotionDynamic); err != nil {
			log.Fatalf("Stress: %v", err)
		}
	}

	// Warm up
	world.Step()

	start := time.Now()
	for range *steps {
		world.Step()
	}
	elapsed := time.Since(start)

	sleeping := 0
	for _, b := range world.Bodies() {
		if !b.IsStatic() && b.IsSleeping() {
			sleeping++
		}
	}
	return result{
		perStep:  elapsed / time.Duration(max(*steps, 1)),
		sleeping: sleeping,
		gpu:      world.UsingGPU(),
	}
}
