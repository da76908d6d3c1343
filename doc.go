// Package fibersched is a fiber-based task scheduler for rendering engines
// that must run part of their work on the one OS thread owning a graphics
// context.
//
// Tasks are admitted with traits (priority, affinity, launch mode, blocking
// intent) and run on fibers. A task may admit more tasks and Block until they
// finish; while it waits, its worker is free to run other work. Context-affine
// tasks only ever run on workers locked to the context thread.
//
// # Quick Start
//
// Initialize the global scheduler at application startup:
//
//	if err := fibersched.InitGlobalScheduler(fibersched.DefaultConfig()); err != nil {
//		log.Fatal(err)
//	}
//	defer fibersched.ShutdownGlobalScheduler(context.Background())
//
// Create the window on the context thread and wait for it:
//
//	ctx := fibersched.Enter(context.Background())
//	fibersched.AddTask(ctx, fibersched.TraitsContext(), func(ctx context.Context) {
//		createWindow()
//	})
//	if err := fibersched.Block(ctx); err != nil {
//		log.Fatal(err)
//	}
//
// # Key Concepts
//
// Fiber: the execution context of one task. Block suspends the calling fiber
// until every blocking task it admitted since its previous Block has finished.
//
// TaskTraits: Priority (Idle, Low, Normal, High) decides dequeue order;
// Affinity (Any, Context) decides which workers may run the task; Launch
// (Deferred, Immediate) decides whether an idle worker is woken right away.
//
// Thread classes: general workers share the AffinityAny queues; workers
// bound to the context thread own the AffinityContext queues. A context task
// that blocks keeps its thread and runs other context work in the meantime.
//
// # Example
//
//	id, err := fibersched.Call(ctx, fibersched.TraitsContext(),
//		func(ctx context.Context) (uint32, error) {
//			return linkProgram(vertex, fragment)
//		})
package fibersched
