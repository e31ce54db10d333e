package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"quizroom/internal/domain"
	"quizroom/internal/infra/memory"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[string]domain.Quiz{
			"quiz:test": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(newClient(mr), loader, time.Minute)

	quiz, err := repo.GetQuiz(context.Background(), "quiz:test")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if len(quiz.Questions) != 2 || quiz.Questions[0].Correct != 1 {
		t.Fatalf("quiz content mangled: %+v", quiz)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}

	// second call hits the redis cache; question order must survive
	quiz, err = repo.GetQuiz(context.Background(), "quiz:test")
	if err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if quiz.Questions[0].Text != "Q1" || quiz.Questions[1].Text != "Q2" {
		t.Fatalf("cached quiz lost question order: %+v", quiz.Questions)
	}
}

type countingLoader struct {
	QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizKey string) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizKey)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		Key: "quiz:test",
		Questions: []domain.Question{
			{Text: "Q1", Choices: []string{"a", "b"}, Correct: 1},
			{Text: "Q2", Choices: []string{"x", "y"}, Correct: 0},
		},
	}
}
