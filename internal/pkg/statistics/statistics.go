package statistics

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/odontobb/odontobb/app/models"
	"github.com/odontobb/odontobb/internal/pkg/cache"
	"github.com/odontobb/odontobb/internal/pkg/database"
)

const (
	CacheKeyImagesTotal       = "statistics:images:total"
	CacheKeyAppointmentsTotal = "statistics:appointments:total"
	CacheKeyAppointmentsDaily = "statistics:appointments:daily:%s" // Format with date YYYY-MM-DD
	CacheKeyUsers             = "statistics:users:total"
	CacheExpiration           = 30 * time.Minute
)

// StatisticsData is the dashboard summary.
type StatisticsData struct {
	TotalUsers        int
	TotalImages       int
	TotalAppointments int
	TodayAppointments int
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache checks whether the cache is stale.
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded refreshes the cache when stale.
func UpdateCacheIfNeeded() {
	if ShouldUpdateCache() {
		cacheUpdateMutex.Lock()
		defer cacheUpdateMutex.Unlock()

		if err := UpdateStatisticsCache(); err != nil {
			log.Printf("Error updating statistics cache: %v", err)
		} else {
			lastCacheUpdate = time.Now()
		}
	}
}

// ResetCacheUpdateTimer forces the next UpdateCacheIfNeeded to refresh.
func ResetCacheUpdateTimer() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	lastCacheUpdate = time.Time{}
}

// UpdateStatisticsCache updates all statistics in the cache
func UpdateStatisticsCache() error {
	db := database.GetDB()

	var totalImages int64
	if err := db.Model(&models.Image{}).Count(&totalImages).Error; err != nil {
		log.Printf("Error counting total images: %v", err)
		return err
	}

	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		log.Printf("Error counting total users: %v", err)
		return err
	}

	var totalAppointments int64
	if err := db.Model(&models.Appointment{}).Count(&totalAppointments).Error; err != nil {
		log.Printf("Error counting total appointments: %v", err)
		return err
	}

	today := time.Now().Format("2006-01-02")
	todayStart, _ := time.Parse("2006-01-02", today)
	todayEnd := todayStart.Add(24 * time.Hour)

	var todayAppointments int64
	if err := db.Model(&models.Appointment{}).
		Where("scheduled_at BETWEEN ? AND ?", todayStart, todayEnd).
		Count(&todayAppointments).Error; err != nil {
		log.Printf("Error counting today's appointments: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyImagesTotal, strconv.FormatInt(totalImages, 10), CacheExpiration); err != nil {
		return err
	}
	if err := cache.Set(CacheKeyUsers, strconv.FormatInt(totalUsers, 10), CacheExpiration); err != nil {
		return err
	}
	if err := cache.Set(CacheKeyAppointmentsTotal, strconv.FormatInt(totalAppointments, 10), CacheExpiration); err != nil {
		return err
	}
	dailyKey := fmt.Sprintf(CacheKeyAppointmentsDaily, today)
	if err := cache.Set(dailyKey, strconv.FormatInt(todayAppointments, 10), CacheExpiration); err != nil {
		return err
	}

	log.Printf("Statistics updated in cache: users=%d images=%d appointments=%d today=%d",
		totalUsers, totalImages, totalAppointments, todayAppointments)

	return nil
}

// GetTotalImages returns the total number of images from cache or database
func GetTotalImages() int {
	return cachedCount(CacheKeyImagesTotal, func() (int64, error) {
		var count int64
		err := database.GetDB().Model(&models.Image{}).Count(&count).Error
		return count, err
	})
}

// GetTotalUsers returns the total number of users from cache or database
func GetTotalUsers() int {
	return cachedCount(CacheKeyUsers, func() (int64, error) {
		var count int64
		err := database.GetDB().Model(&models.User{}).Count(&count).Error
		return count, err
	})
}

// GetTotalAppointments returns the total appointment count from cache or database
func GetTotalAppointments() int {
	return cachedCount(CacheKeyAppointmentsTotal, func() (int64, error) {
		var count int64
		err := database.GetDB().Model(&models.Appointment{}).Count(&count).Error
		return count, err
	})
}

// GetTodayAppointments returns today's appointment count from cache or database
func GetTodayAppointments() int {
	today := time.Now().Format("2006-01-02")
	dailyKey := fmt.Sprintf(CacheKeyAppointmentsDaily, today)

	return cachedCount(dailyKey, func() (int64, error) {
		todayStart, _ := time.Parse("2006-01-02", today)
		todayEnd := todayStart.Add(24 * time.Hour)

		var count int64
		err := database.GetDB().Model(&models.Appointment{}).
			Where("scheduled_at BETWEEN ? AND ?", todayStart, todayEnd).
			Count(&count).Error
		return count, err
	})
}

// cachedCount reads a counter from cache, falling back to the database and
// refilling the cache on a miss.
func cachedCount(key string, load func() (int64, error)) int {
	val, err := cache.Get(key)
	if err != nil {
		count, loadErr := load()
		if loadErr != nil {
			log.Printf("Error loading statistic %s: %v", key, loadErr)
			return 0
		}
		if err := cache.Set(key, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching statistic %s: %v", key, err)
		}
		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}
	return int(count)
}

// GetStatisticsData returns all statistics data as StatisticsData structure
func GetStatisticsData() StatisticsData {
	UpdateCacheIfNeeded()

	return StatisticsData{
		TotalUsers:        GetTotalUsers(),
		TotalImages:       GetTotalImages(),
		TotalAppointments: GetTotalAppointments(),
		TodayAppointments: GetTodayAppointments(),
	}
}
