package pipeline

import (
	"fmt"

	"github.com/voxelforge/bastion/internal/mesh"
)

// generatorWorker mirrors the teacher's generatorWorker: pull a task,
// run it, publish a completion; on shutdown, drain the queue so nothing
// is left enqueued forever.
func (p *Pipeline) generatorWorker() error {
	for {
		select {
		case task := <-p.genQueue:
			p.runGenerationTask(task)
		case <-p.closing:
			p.drainGenerateQueue()
			return nil
		}
	}
}

func (p *Pipeline) meshWorker() error {
	for {
		select {
		case task := <-p.meshQueue:
			p.runMeshTask(task)
		case <-p.closing:
			p.drainMeshQueue()
			return nil
		}
	}
}

func (p *Pipeline) runGenerationTask(task generationTask) {
	defer p.unmark(task.id)
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("pipeline: generation panic", "section", task.id.String(), "error", fmt.Sprint(r))
		}
	}()

	section := p.gen.Generate(task.id)
	p.store.InstallSection(task.id, section)
	p.publish(completion{kind: kindGenerate, id: task.id})
}

// runMeshTask reads the padded view under the Store's reader lock and
// extracts a mesh. A write racing with this read only ever invalidates
// the task advisorially (spec.md §5 Ownership): the task still runs to
// completion, the main tick simply discards a stale result if the
// section was already re-queued by the time this completes.
func (p *Pipeline) runMeshTask(task meshTask) {
	defer p.unmark(task.id)
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("pipeline: meshing panic", "section", task.id.String(), "error", fmt.Sprint(r))
		}
	}()

	view, err := p.store.ReadPaddedSection(task.id)
	if err != nil {
		p.publish(completion{kind: kindMesh, id: task.id, err: err})
		return
	}

	var opts []mesh.Option
	if p.meshSkirt {
		opts = append(opts, mesh.WithSkirt(true))
	}
	m, err := mesh.Extract(view, opts...)
	p.publish(completion{kind: kindMesh, id: task.id, mesh: m, err: err})
}

func (p *Pipeline) drainGenerateQueue() {
	for {
		select {
		case task := <-p.genQueue:
			p.unmark(task.id)
		default:
			return
		}
	}
}

func (p *Pipeline) drainMeshQueue() {
	for {
		select {
		case task := <-p.meshQueue:
			p.unmark(task.id)
		default:
			return
		}
	}
}
