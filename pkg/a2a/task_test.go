package a2a

import (
	"errors"
	"math/rand"
	"testing"
)

func TestNewTask(t *testing.T) {
	msg := NewUserMessage("hello")
	task := NewTask(msg)

	if task.ID == "" {
		t.Error("NewTask should assign an ID")
	}
	if task.State != StateSubmitted {
		t.Errorf("NewTask state = %s, want %s", task.State, StateSubmitted)
	}
	if len(task.Messages) != 1 {
		t.Fatalf("NewTask messages = %d, want 1", len(task.Messages))
	}
	if task.Messages[0].ID != msg.ID {
		t.Error("NewTask should seed messages with the given message")
	}
	if task.CreatedAt.IsZero() {
		t.Error("NewTask should set CreatedAt")
	}
}

func TestTask_Start(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(*Task)
		wantErr bool
	}{
		{
			name:    "from submitted",
			prepare: func(*Task) {},
			wantErr: false,
		},
		{
			name:    "from working",
			prepare: func(task *Task) { _ = task.Start() },
			wantErr: true,
		},
		{
			name:    "from completed",
			prepare: func(task *Task) { _ = task.Complete("done") },
			wantErr: true,
		},
		{
			name:    "from cancelled",
			prepare: func(task *Task) { _ = task.Cancel() },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := NewTask(NewUserMessage("hi"))
			tt.prepare(task)

			err := task.Start()
			if (err != nil) != tt.wantErr {
				t.Errorf("Start() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("Start() error = %v, want ErrInvalidTransition", err)
			}
		})
	}
}

func TestTask_Complete(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(*Task)
		wantErr error
	}{
		{
			name:    "from submitted",
			prepare: func(*Task) {},
		},
		{
			name:    "from working",
			prepare: func(task *Task) { _ = task.Start() },
		},
		{
			name:    "already completed",
			prepare: func(task *Task) { _ = task.Complete("first") },
			wantErr: ErrTaskClosed,
		},
		{
			name:    "already cancelled",
			prepare: func(task *Task) { _ = task.Cancel() },
			wantErr: ErrTaskClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := NewTask(NewUserMessage("hi"))
			tt.prepare(task)

			err := task.Complete("x")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Complete() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Complete() error = %v", err)
			}
			if task.State != StateCompleted {
				t.Errorf("state = %s, want %s", task.State, StateCompleted)
			}
			last, ok := task.LastMessage()
			if !ok {
				t.Fatal("completed task should have messages")
			}
			if last.Role != MessageRoleAgent {
				t.Errorf("last message role = %s, want %s", last.Role, MessageRoleAgent)
			}
			if got := ExtractText(last); got != "x" {
				t.Errorf("last message text = %q, want %q", got, "x")
			}
		})
	}
}

func TestTask_Fail(t *testing.T) {
	task := NewTask(NewUserMessage("hi"))
	if err := task.Start(); err != nil {
		t.Fatal(err)
	}
	if err := task.Fail("boom"); err != nil {
		t.Fatalf("Fail() error = %v", err)
	}
	if task.State != StateFailed {
		t.Errorf("state = %s, want %s", task.State, StateFailed)
	}
	if task.Metadata[MetadataErrorKey] != "boom" {
		t.Errorf("metadata[%q] = %v, want %q", MetadataErrorKey, task.Metadata[MetadataErrorKey], "boom")
	}

	if err := task.Fail("again"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fail() on failed task error = %v, want ErrInvalidTransition", err)
	}
}

func TestTask_AppendAfterTerminal(t *testing.T) {
	task := NewTask(NewUserMessage("hi"))
	if err := task.Cancel(); err != nil {
		t.Fatal(err)
	}

	if err := task.AddMessage(NewUserMessage("more")); !errors.Is(err, ErrTaskClosed) {
		t.Errorf("AddMessage() error = %v, want ErrTaskClosed", err)
	}
	if err := task.AddArtifact(NewArtifact(TextPart("out"))); !errors.Is(err, ErrTaskClosed) {
		t.Errorf("AddArtifact() error = %v, want ErrTaskClosed", err)
	}
}

func TestTask_AddMessagePreservesOrder(t *testing.T) {
	task := NewTask(NewUserMessage("first"))
	if err := task.AddMessage(NewAgentMessage("second")); err != nil {
		t.Fatal(err)
	}
	if err := task.AddMessage(NewUserMessage("third")); err != nil {
		t.Fatal(err)
	}

	want := []string{"first", "second", "third"}
	if len(task.Messages) != len(want) {
		t.Fatalf("messages = %d, want %d", len(task.Messages), len(want))
	}
	for i, text := range want {
		if got := ExtractText(task.Messages[i]); got != text {
			t.Errorf("messages[%d] = %q, want %q", i, got, text)
		}
	}
}

// TestTask_TransitionProperty drives random transition sequences and
// verifies only submitted -> working -> {completed, failed, cancelled}
// edges ever succeed.
func TestTask_TransitionProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	ops := []func(*Task) error{
		func(task *Task) error { return task.Start() },
		func(task *Task) error { return task.Complete("done") },
		func(task *Task) error { return task.Fail("err") },
		func(task *Task) error { return task.Cancel() },
	}

	for i := 0; i < 200; i++ {
		task := NewTask(NewUserMessage("hi"))
		for j := 0; j < 10; j++ {
			before := task.CurrentState()
			err := ops[rng.Intn(len(ops))](task)
			after := task.CurrentState()

			if err != nil {
				if after != before {
					t.Fatalf("failed op mutated state %s -> %s", before, after)
				}
				continue
			}
			if before.IsTerminal() {
				t.Fatalf("transition out of terminal state %s succeeded", before)
			}
			if before == StateWorking && after == StateSubmitted {
				t.Fatal("backward transition working -> submitted succeeded")
			}
			if !canTransition(before, after) {
				t.Fatalf("illegal transition %s -> %s succeeded", before, after)
			}
		}
	}
}

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state State
		want  bool
	}{
		{StateSubmitted, false},
		{StateWorking, false},
		{StateCompleted, true},
		{StateFailed, true},
		{StateCancelled, true},
	}

	for _, tt := range tests {
		if got := tt.state.IsTerminal(); got != tt.want {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.state, got, tt.want)
		}
	}
}
