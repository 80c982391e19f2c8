package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product represents a catalog product. Reviews are embedded in the product
// document; Rating and NumReviews are derived from them and recomputed on
// every review mutation.
type Product struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description" bson:"description"`
	Price       int64              `json:"price" bson:"price"`
	Category    string             `json:"category" bson:"category"`
	Stock       int                `json:"stock" bson:"stock"`
	Images      []Image            `json:"images" bson:"images"`
	Rating      float64            `json:"rating" bson:"rating"`
	NumReviews  int                `json:"num_reviews" bson:"num_reviews"`
	Reviews     []Review           `json:"reviews" bson:"reviews"`
	CreatedBy   primitive.ObjectID `json:"created_by" bson:"created_by"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

// Image is a product image reference.
type Image struct {
	PublicID string `json:"public_id" bson:"public_id"`
	URL      string `json:"url" bson:"url"`
}

// Review is a product review embedded in the product document.
type Review struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"user_id" bson:"user_id"`
	Name      string             `json:"name" bson:"name"`
	Rating    float64            `json:"rating" bson:"rating"`
	Comment   string             `json:"comment" bson:"comment"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

// ApplyReview upserts a review: a review by the same user replaces the
// existing one in place, any other review is appended. Rating and NumReviews
// are recomputed afterwards.
func (p *Product) ApplyReview(review Review) {
	replaced := false
	for i := range p.Reviews {
		if p.Reviews[i].UserID == review.UserID {
			review.ID = p.Reviews[i].ID
			review.CreatedAt = p.Reviews[i].CreatedAt
			p.Reviews[i] = review
			replaced = true
			break
		}
	}
	if !replaced {
		p.Reviews = append(p.Reviews, review)
	}
	p.recomputeRating()
}

// RemoveReview deletes the review with the given ID. It reports whether a
// review was removed; the derived fields are recomputed either way.
func (p *Product) RemoveReview(reviewID primitive.ObjectID) bool {
	kept := p.Reviews[:0]
	removed := false
	for _, r := range p.Reviews {
		if r.ID == reviewID {
			removed = true
			continue
		}
		kept = append(kept, r)
	}
	p.Reviews = kept
	p.recomputeRating()
	return removed
}

// ReviewByUser returns the review left by the given user, if any.
func (p *Product) ReviewByUser(userID primitive.ObjectID) *Review {
	for i := range p.Reviews {
		if p.Reviews[i].UserID == userID {
			return &p.Reviews[i]
		}
	}
	return nil
}

func (p *Product) recomputeRating() {
	p.NumReviews = len(p.Reviews)
	if p.NumReviews == 0 {
		p.Rating = 0
		return
	}
	var sum float64
	for _, r := range p.Reviews {
		sum += r.Rating
	}
	p.Rating = sum / float64(p.NumReviews)
}
