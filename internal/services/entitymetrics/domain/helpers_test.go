package domain

import "testing"

func TestCalculateRating(t *testing.T) {
	t.Parallel()

	r := CalculateRating(Metrics{MetricThumbsUp: 0, MetricThumbsDown: 0})
	if r.Rating != nil || r.RatingCount != nil {
		t.Fatalf("zero votes = %+v, want nils", r)
	}

	r = CalculateRating(Metrics{MetricThumbsUp: 3, MetricThumbsDown: 1})
	if r.Rating == nil || *r.Rating != 3.75 || r.RatingCount == nil || *r.RatingCount != 4 {
		t.Fatalf("3/1 = %+v", r)
	}

	r = CalculateRating(Metrics{MetricThumbsUp: 2, MetricThumbsDown: 1})
	if *r.Rating != 3.33 {
		t.Fatalf("rounding = %v, want 3.33", *r.Rating)
	}

	if r := CalculateRating(nil); r.Rating != nil {
		t.Fatalf("nil metrics = %+v", r)
	}
}

func TestMetricOrNull(t *testing.T) {
	t.Parallel()

	m := Metrics{MetricView: 0}
	if v := MetricOrNull(m, MetricView); v == nil || *v != 0 {
		t.Fatalf("tracked zero = %v", v)
	}
	if v := MetricOrNull(m, MetricHeart); v != nil {
		t.Fatalf("untracked = %v, want nil", *v)
	}
	if v := MetricOrNull(nil, MetricView); v != nil {
		t.Fatalf("absent map = %v", *v)
	}
}

func TestSumMetrics(t *testing.T) {
	t.Parallel()

	m := Metrics{MetricHeart: 2, MetricLaugh: 3}
	if v := SumMetrics(m, MetricHeart, MetricLaugh, MetricCry); v == nil || *v != 5 {
		t.Fatalf("sum = %v", v)
	}
	if v := SumMetrics(nil, MetricHeart); v != nil {
		t.Fatalf("nil map sum = %v", *v)
	}
}
