// 示例试卷播种脚本
//
// 创建一名教师账号和一份已发布的示例试卷（含单选、多选和数值题），
// 用于本地联调或演示环境初始化。
//
// 用法: go run scripts/seed_exam.go

package main

import (
	"log"
	"os"

	"exam_platform_backend/internal/config"
	"exam_platform_backend/internal/model"
	"exam_platform_backend/internal/repository"
	"exam_platform_backend/internal/service"
	"exam_platform_backend/pkg/database"
	"exam_platform_backend/pkg/logger"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

func main() {
	data, err := os.ReadFile("configs/config.yaml")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	logger.InitLogger(&cfg)

	db, err := database.InitDB(&cfg.Database, false)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("teacher123"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("密码加密失败: %v", err)
	}

	teacher := model.User{
		Name:     "示例教师",
		Email:    "teacher@example.com",
		Password: string(hashed),
		Role:     model.Teacher,
	}
	if err := db.Where("email = ?", teacher.Email).FirstOrCreate(&teacher).Error; err != nil {
		log.Fatalf("创建教师账号失败: %v", err)
	}

	title := "Go 语言基础测验"
	description := "涵盖语法、并发与标准库的示例试卷"
	duration := 30
	maxAttempts := 2
	sections := []service.SectionReq{
		{
			Title: "单选题",
			Questions: []service.QuestionReq{
				{
					QuestionType:  model.SingleChoice,
					Content:       "Go 中声明常量使用哪个关键字?",
					Marks:         2,
					NegativeMarks: 0.5,
					Options: []service.OptionReq{
						{Content: "const", IsCorrect: true},
						{Content: "var"},
						{Content: "let"},
						{Content: "define"},
					},
				},
			},
		},
		{
			Title: "多选题",
			Questions: []service.QuestionReq{
				{
					QuestionType: model.MultiChoice,
					Content:      "以下哪些是 Go 的内置并发原语?",
					Marks:        4,
					Options: []service.OptionReq{
						{Content: "goroutine", IsCorrect: true},
						{Content: "channel", IsCorrect: true},
						{Content: "thread"},
						{Content: "actor"},
					},
				},
			},
		},
		{
			Title: "填空题",
			Questions: []service.QuestionReq{
				{
					QuestionType:  model.Numeric,
					Content:       "int8 能表示的最大值是多少?",
					Marks:         3,
					NegativeMarks: 1,
					CorrectAnswer: "127",
				},
			},
		},
	}

	req := service.ExamReq{
		Title:       &title,
		Description: &description,
		Duration:    &duration,
		MaxAttempts: &maxAttempts,
		Sections:    &sections,
	}

	// 直接走数据库,不经过缓存
	svc := service.NewExamService(repository.NewExamRepository(db), repository.NewAttemptRepository(db), repository.NewResultRepository(db), nil)
	exam, err := svc.CreateExam(teacher.ID, req)
	if err != nil {
		log.Fatalf("创建示例试卷失败: %v", err)
	}
	if _, err := svc.PublishExam(exam.ID, true); err != nil {
		log.Fatalf("发布示例试卷失败: %v", err)
	}

	log.Printf("示例试卷已创建并发布: %s (%s)", exam.Title, exam.ID)
}
