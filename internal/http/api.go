package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"carmarket/internal/repository"
	"carmarket/internal/service"
	"carmarket/internal/session"
	"carmarket/internal/upload"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users    service.UserService
	cars     service.CarService
	uploads  *upload.Handler
	sessions *session.Manager
	logger   *logrus.Logger
	maxBody  int64
}

func NewHandler(users service.UserService, cars service.CarService, uploads *upload.Handler, sessions *session.Manager, logger *logrus.Logger, maxBody int64) *Handler {
	return &Handler{
		users:    users,
		cars:     cars,
		uploads:  uploads,
		sessions: sessions,
		logger:   logger,
		maxBody:  maxBody,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(h.limitBody(), h.resolveUser())

	router.GET("/register", h.registerForm)
	router.POST("/register", h.register)
	router.GET("/login", h.loginForm)
	router.POST("/login", h.login)
	router.GET("/logout", h.logout)

	router.GET("/", h.index)
	router.GET("/search", h.search)
	router.GET("/car/:id", h.carDetail)

	router.GET("/sell", h.requireUser("You need to login to sell a car."), h.sellForm)
	router.POST("/sell", h.requireUser("You need to login to sell a car."), h.sell)
	router.GET("/my-listings", h.requireUser("You need to login to view your listings."), h.myListings)
	router.GET("/edit-car/:id", h.requireUser("You need to login to edit a car listing."), h.editCarForm)
	router.POST("/edit-car/:id", h.requireUser("You need to login to edit a car listing."), h.editCar)
	router.POST("/delete-car/:id", h.requireUser("You need to login to delete a car listing."), h.deleteCar)
}

func (h *Handler) index(c *gin.Context) {
	data, err := h.cars.Browse(c.Request.Context())

	page := h.pageData(c, gin.H{
		"Cars":          data.Cars,
		"Brands":        data.Brands,
		"Years":         data.Years,
		"SearchQuery":   "",
		"SelectedBrand": "",
		"SelectedYear":  "",
		"MinPrice":      "",
		"MaxPrice":      "",
	})
	if err != nil {
		page["Flash"] = &flashMessage{Category: "danger", Message: "An error occurred while loading listings."}
	}
	c.HTML(http.StatusOK, "index.html", page)
}

func (h *Handler) search(c *gin.Context) {
	filter := repository.CarFilter{
		Query: c.Query("query"),
		Brand: c.Query("brand"),
	}
	if raw := c.Query("year"); raw != "" {
		if year, err := strconv.Atoi(raw); err == nil {
			filter.Year = &year
		}
	}
	if raw := c.Query("min_price"); raw != "" {
		if min, err := strconv.ParseFloat(raw, 64); err == nil {
			filter.MinPrice = &min
		}
	}
	if raw := c.Query("max_price"); raw != "" {
		if max, err := strconv.ParseFloat(raw, 64); err == nil {
			filter.MaxPrice = &max
		}
	}

	data, err := h.cars.Search(c.Request.Context(), filter)

	page := h.pageData(c, gin.H{
		"Cars":          data.Cars,
		"Brands":        data.Brands,
		"Years":         data.Years,
		"SearchQuery":   c.Query("query"),
		"SelectedBrand": c.Query("brand"),
		"SelectedYear":  c.Query("year"),
		"MinPrice":      c.Query("min_price"),
		"MaxPrice":      c.Query("max_price"),
	})
	if err != nil {
		page["Flash"] = &flashMessage{Category: "danger", Message: "An error occurred while searching. Please try again."}
	}
	c.HTML(http.StatusOK, "index.html", page)
}

func (h *Handler) carDetail(c *gin.Context) {
	id, ok := carID(c)
	if !ok {
		h.flashRedirect(c, "danger", "Car not found!", "/")
		return
	}

	car, err := h.cars.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrCarNotFound) {
			h.flashRedirect(c, "danger", "Car not found!", "/")
			return
		}
		h.flashRedirect(c, "danger", "An error occurred while retrieving car details.", "/")
		return
	}

	c.HTML(http.StatusOK, "car_detail.html", h.pageData(c, gin.H{"Car": car}))
}

func (h *Handler) sellForm(c *gin.Context) {
	c.HTML(http.StatusOK, "sell.html", h.pageData(c, gin.H{"Edit": false, "Form": service.CarInput{}}))
}

func (h *Handler) sell(c *gin.Context) {
	user := currentUser(c)
	input, uploadErr := h.listingInput(c)

	renderForm := func(flash *flashMessage) {
		page := h.pageData(c, gin.H{"Edit": false, "Form": input})
		page["Flash"] = flash
		c.HTML(http.StatusOK, "sell.html", page)
	}

	if uploadErr != nil {
		renderForm(h.uploadFlash(uploadErr))
		return
	}

	if _, err := h.cars.Create(c.Request.Context(), user.ID, input); err != nil {
		if verr, ok := service.AsValidation(err); ok {
			renderForm(&flashMessage{Category: "danger", Message: verr.Message})
			return
		}
		h.logger.WithError(err).Error("create listing")
		renderForm(&flashMessage{Category: "danger", Message: "An error occurred while saving your listing."})
		return
	}

	h.flashRedirect(c, "success", "Your car listing has been created!", "/")
}

func (h *Handler) myListings(c *gin.Context) {
	user := currentUser(c)

	cars, err := h.cars.ListByOwner(c.Request.Context(), user.ID)
	page := h.pageData(c, gin.H{"Cars": cars})
	if err != nil {
		page["Flash"] = &flashMessage{Category: "danger", Message: "An error occurred while retrieving your listings."}
	}
	c.HTML(http.StatusOK, "my_listings.html", page)
}

func (h *Handler) editCarForm(c *gin.Context) {
	user := currentUser(c)
	id, ok := carID(c)
	if !ok {
		h.flashRedirect(c, "danger", "Car not found!", "/my-listings")
		return
	}

	car, err := h.cars.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrCarNotFound) {
			h.flashRedirect(c, "danger", "Car not found!", "/my-listings")
			return
		}
		h.flashRedirect(c, "danger", "An error occurred while retrieving car details.", "/my-listings")
		return
	}
	if car.UserID != user.ID {
		h.flashRedirect(c, "danger", "You can only edit your own listings!", "/my-listings")
		return
	}

	form := service.CarInput{
		Title:       car.Title,
		Brand:       car.Brand,
		Model:       car.Model,
		Year:        strconv.Itoa(car.Year),
		Price:       strconv.FormatFloat(car.Price, 'f', -1, 64),
		Description: car.Description,
	}
	if car.Mileage != nil {
		form.Mileage = strconv.FormatInt(*car.Mileage, 10)
	}

	c.HTML(http.StatusOK, "sell.html", h.pageData(c, gin.H{"Edit": true, "CarID": car.ID, "Form": form}))
}

func (h *Handler) editCar(c *gin.Context) {
	user := currentUser(c)
	id, ok := carID(c)
	if !ok {
		h.flashRedirect(c, "danger", "Car not found!", "/my-listings")
		return
	}

	input, uploadErr := h.listingInput(c)

	renderForm := func(flash *flashMessage) {
		page := h.pageData(c, gin.H{"Edit": true, "CarID": id, "Form": input})
		page["Flash"] = flash
		c.HTML(http.StatusOK, "sell.html", page)
	}

	if uploadErr != nil {
		renderForm(h.uploadFlash(uploadErr))
		return
	}

	err := h.cars.Update(c.Request.Context(), id, user.ID, input)
	switch {
	case err == nil:
		h.flashRedirect(c, "success", "Your car listing has been updated!", "/my-listings")
	case errors.Is(err, service.ErrCarNotFound):
		h.flashRedirect(c, "danger", "Car not found!", "/my-listings")
	case errors.Is(err, service.ErrNotOwner):
		h.flashRedirect(c, "danger", "You can only edit your own listings!", "/my-listings")
	default:
		if verr, ok := service.AsValidation(err); ok {
			renderForm(&flashMessage{Category: "danger", Message: verr.Message})
			return
		}
		h.logger.WithError(err).Error("update listing")
		renderForm(&flashMessage{Category: "danger", Message: "An error occurred while saving your listing."})
	}
}

func (h *Handler) deleteCar(c *gin.Context) {
	user := currentUser(c)
	id, ok := carID(c)
	if !ok {
		h.flashRedirect(c, "danger", "Car not found!", "/my-listings")
		return
	}

	err := h.cars.Delete(c.Request.Context(), id, user.ID)
	switch {
	case err == nil:
		h.flashRedirect(c, "success", "Your car listing has been deleted!", "/my-listings")
	case errors.Is(err, service.ErrCarNotFound):
		h.flashRedirect(c, "danger", "Car not found!", "/my-listings")
	case errors.Is(err, service.ErrNotOwner):
		h.flashRedirect(c, "danger", "You can only delete your own listings!", "/my-listings")
	default:
		h.logger.WithError(err).Error("delete listing")
		h.flashRedirect(c, "danger", "An error occurred while deleting your listing.", "/my-listings")
	}
}

// listingInput gathers the listing form fields plus the optional image
// upload. The returned error is an upload problem; the form values are still
// returned so the page can re-render them.
func (h *Handler) listingInput(c *gin.Context) (service.CarInput, error) {
	input := service.CarInput{
		Title:       c.PostForm("title"),
		Brand:       c.PostForm("brand"),
		Model:       c.PostForm("model"),
		Year:        c.PostForm("year"),
		Price:       c.PostForm("price"),
		Mileage:     c.PostForm("mileage"),
		Description: c.PostForm("description"),
	}

	fh, err := c.FormFile("car_image")
	if err != nil {
		// no file field at all; the image is optional
		return input, nil
	}

	url, err := h.uploads.Store(c.Request.Context(), fh)
	if err != nil {
		return input, err
	}
	if url != "" {
		input.ImageURL = &url
	}
	return input, nil
}

func (h *Handler) uploadFlash(err error) *flashMessage {
	if errors.Is(err, upload.ErrBadFileType) {
		return &flashMessage{Category: "danger", Message: "Invalid file type. Allowed types are: png, jpg, jpeg, gif."}
	}
	h.logger.WithError(err).Error("store upload")
	return &flashMessage{Category: "danger", Message: "An error occurred while saving your image."}
}

func carID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// limitBody caps the request body, upload included, rejecting oversize
// requests outright instead of truncating them.
func (h *Handler) limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > h.maxBody {
			c.String(http.StatusRequestEntityTooLarge, "Request body too large.")
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)
		c.Next()
	}
}
