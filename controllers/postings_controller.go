package controllers

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	lifecycle "github.com/phillip/food-rescue-go/lifecycle"
	models "github.com/phillip/food-rescue-go/models"
	services "github.com/phillip/food-rescue-go/services"
	utils "github.com/phillip/food-rescue-go/utils"
)

// postingForm is the multipart variant of services.CreatePostingInput.
type postingForm struct {
	FoodName     string    `form:"food_name" binding:"required"`
	Description  string    `form:"description"`
	FoodCategory string    `form:"food_category"`
	Quantity     string    `form:"quantity" binding:"required"`
	ExpiresAt    time.Time `form:"expires_at" time_format:"2006-01-02T15:04:05Z07:00" binding:"required"`
	Tags         string    `form:"tags"`
	Line1        string    `form:"line1"`
	Line2        string    `form:"line2"`
	Landmark     string    `form:"landmark"`
	Pincode      string    `form:"pincode"`
	Lat          string    `form:"lat"`
	Lng          string    `form:"lng"`
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// uploadFile stores the first file under field, if any. It answers the
// request itself on failure.
func uploadFile(c *gin.Context, svc *services.RescueService, field, folder string) (string, bool) {
	fileHeader, err := c.FormFile(field)
	if err == http.ErrMissingFile {
		return "", true
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data"})
		return "", false
	}
	return upload(c, svc, fileHeader, folder)
}

func upload(c *gin.Context, svc *services.RescueService, fileHeader *multipart.FileHeader, folder string) (string, bool) {
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open file"})
		return "", false
	}
	defer file.Close()

	url, err := svc.UploadImage(c.Request.Context(), file, folder)
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"error":   "image upload failed",
			"details": err.Error(),
			"file":    fileHeader.Filename,
		})
		return "", false
	}
	return url, true
}

func parseCoord(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ---------------- CREATE ----------------
func CreatePosting(svc *services.RescueService) gin.HandlerFunc {
	return func(c *gin.Context) {
		donor, ok := actor(c)
		if !ok {
			return
		}

		var input services.CreatePostingInput
		if isMultipart(c) {
			// --- Bind form fields ---
			var form postingForm
			if err := c.ShouldBind(&form); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			lat, errLat := parseCoord(form.Lat)
			lng, errLng := parseCoord(form.Lng)
			if errLat != nil || errLng != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid coordinates"})
				return
			}
			input = services.CreatePostingInput{
				FoodName:     form.FoodName,
				Description:  form.Description,
				FoodCategory: form.FoodCategory,
				Quantity:     form.Quantity,
				ExpiresAt:    form.ExpiresAt,
				Location: models.Address{
					Line1: form.Line1, Line2: form.Line2, Landmark: form.Landmark, Pincode: form.Pincode,
					Lat: lat, Lng: lng,
				},
			}
			for _, tag := range strings.Split(form.Tags, ",") {
				if tag = strings.TrimSpace(tag); tag != "" {
					input.Tags = append(input.Tags, tag)
				}
			}

			// --- Handle file upload ---
			url, ok := uploadFile(c, svc, "image", utils.FolderDonations)
			if !ok {
				return
			}
			input.ImageURL = url
		} else if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		posting, err := svc.CreatePosting(c.Request.Context(), donor, input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, posting)
	}
}

// ---------------- LIST ----------------
func ListPostings(svc *services.RescueService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := actor(c); !ok {
			return
		}

		// --- Build filter ---
		filter := models.PostingFilter{Status: models.PostingStatus(strings.ToUpper(c.Query("status")))}
		for param, dst := range map[string]**primitive.ObjectID{
			"donor_id":     &filter.DonorID,
			"volunteer_id": &filter.VolunteerID,
			"requester_id": &filter.RequesterID,
		} {
			raw := c.Query(param)
			if raw == "" {
				continue
			}
			id, err := primitive.ObjectIDFromHex(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
				return
			}
			*dst = &id
		}

		postings, err := svc.ListPostings(c.Request.Context(), filter)
		if err != nil {
			respondError(c, err)
			return
		}

		// --- ETag from the newest posting and the count ---
		etag, latest := postingsETag(postings)
		if notModified(c, etag, latest) {
			return
		}
		c.JSON(http.StatusOK, postings)
	}
}

// ---------------- GET ----------------
func GetPosting(svc *services.RescueService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := actor(c); !ok {
			return
		}
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		posting, err := svc.GetPosting(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}

		if notModified(c, utils.GenerateETag(posting.ID, posting.UpdatedAt), posting.UpdatedAt) {
			return
		}
		c.JSON(http.StatusOK, posting)
	}
}

// ---------------- DELETE ----------------
func DeletePosting(svc *services.RescueService) gin.HandlerFunc {
	return func(c *gin.Context) {
		donor, ok := actor(c)
		if !ok {
			return
		}
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		if err := svc.DeletePosting(c.Request.Context(), id, donor); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "posting deleted successfully"})
	}
}

// ---------------- TRANSITION ----------------

type transitionInput struct {
	Intent           lifecycle.Intent `json:"intent" form:"intent" binding:"required"`
	ProofURL         string           `json:"proof_url" form:"proof_url"`
	Notes            string           `json:"notes" form:"notes"`
	Lat              *float64         `json:"lat" form:"-"`
	Lng              *float64         `json:"lng" form:"-"`
	RequesterAddress *models.Address  `json:"requester_address" form:"-"`
}

// TransitionPosting applies a lifecycle intent. Proof photos arrive either as
// a proof_url or as a multipart "proof" file.
func TransitionPosting(svc *services.RescueService) gin.HandlerFunc {
	return func(c *gin.Context) {
		who, ok := actor(c)
		if !ok {
			return
		}
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}
		version, ok := expectedVersion(c)
		if !ok {
			return
		}

		var input transitionInput
		if isMultipart(c) {
			if err := c.ShouldBind(&input); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			lat, errLat := parseCoord(c.PostForm("lat"))
			lng, errLng := parseCoord(c.PostForm("lng"))
			if errLat != nil || errLng != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid coordinates"})
				return
			}
			input.Lat, input.Lng = lat, lng

			folder := utils.FolderPickupProofs
			if input.Intent == lifecycle.IntentSubmitDeliveryProof {
				folder = utils.FolderDeliveryProofs
			}
			url, ok := uploadFile(c, svc, "proof", folder)
			if !ok {
				return
			}
			if url != "" {
				input.ProofURL = url
			}
		} else if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		cmd := lifecycle.Command{
			Intent:           lifecycle.Intent(strings.ToUpper(string(input.Intent))),
			Actor:            who,
			ProofURL:         input.ProofURL,
			Notes:            input.Notes,
			RequesterAddress: input.RequesterAddress,
		}
		if input.Lat != nil && input.Lng != nil {
			cmd.VolunteerLocation = &models.Coordinates{Lat: *input.Lat, Lng: *input.Lng}
		}

		posting, err := svc.RequestTransition(c.Request.Context(), id, cmd, version)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("ETag", utils.GenerateETag(posting.ID, posting.UpdatedAt))
		c.JSON(http.StatusOK, posting)
	}
}

// ---------------- LOCATION ----------------
func UpdateVolunteerLocation(svc *services.RescueService) gin.HandlerFunc {
	return func(c *gin.Context) {
		volunteer, ok := actor(c)
		if !ok {
			return
		}
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		var input struct {
			Lat *float64 `json:"lat" binding:"required"`
			Lng *float64 `json:"lng" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		posting, err := svc.UpdateVolunteerLocation(c.Request.Context(), id, volunteer,
			models.Coordinates{Lat: *input.Lat, Lng: *input.Lng})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, posting)
	}
}

// ---------------- SAFETY OVERRIDE ----------------
func OverrideSafety(svc *services.RescueService) gin.HandlerFunc {
	return func(c *gin.Context) {
		donor, ok := actor(c)
		if !ok {
			return
		}
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		posting, err := svc.OverrideSafety(c.Request.Context(), id, donor)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, posting)
	}
}

// ---------------- RATE ----------------
func RatePosting(svc *services.RescueService) gin.HandlerFunc {
	return func(c *gin.Context) {
		rater, ok := actor(c)
		if !ok {
			return
		}
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		var input struct {
			Value    int    `json:"value" binding:"required"`
			Feedback string `json:"feedback"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		posting, err := svc.AddRating(c.Request.Context(), id, rater, input.Value, input.Feedback)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, posting)
	}
}
